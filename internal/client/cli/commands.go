package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/securecloudx/securecloudx/internal/common"
)

func (a *App) Register(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	userID, _, err := a.api.Register(ctx, userName, string(password))
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id %s). The server holds your keypair in custody.\n", userName, userID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, userName, string(password)); err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	a.userName = userName
	fmt.Fprintln(a.out, "Success!")
	return nil
}

func (a *App) Logout(context.Context) error {
	a.api.Logout()
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Upload(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Enter path of file to upload", a.out)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fileID, index, err := a.api.Upload(ctx, filepath.Base(path), content)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Uploaded. file_id=%s ledger_index=%d\n", fileID, index)
	return nil
}

func (a *App) Download(ctx context.Context) error {
	fileID, err := GetSimpleText(a.reader, "Enter file id", a.out)
	if err != nil {
		return err
	}

	filename, content, err := a.api.Download(ctx, fileID)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}
	if filename == "" {
		filename = fileID
	}

	if err := os.WriteFile(filepath.Base(filename), content, 0o600); err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", filepath.Base(filename), len(content))
	return nil
}

func (a *App) Share(ctx context.Context) error {
	fileID, err := GetSimpleText(a.reader, "Enter file id", a.out)
	if err != nil {
		return err
	}
	recipient, err := GetSimpleText(a.reader, "Enter recipient user name", a.out)
	if err != nil {
		return err
	}

	index, err := a.api.Share(ctx, fileID, recipient)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Shared with %s. ledger_index=%d\n", recipient, index)
	return nil
}

func (a *App) Files(ctx context.Context) error {
	owned, shared, err := a.api.Files(ctx)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fmt.Fprintln(a.out, "Owned:")
	for _, f := range owned {
		fmt.Fprintf(a.out, "  %s  %s\n", f.FileID, f.Filename)
	}
	fmt.Fprintln(a.out, "Shared with me:")
	for _, f := range shared {
		fmt.Fprintf(a.out, "  %s  %s\n", f.FileID, f.Filename)
	}
	return nil
}

func (a *App) Users(ctx context.Context) error {
	users, err := a.api.Users(ctx)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	for _, u := range users {
		fmt.Fprintf(a.out, "  %s  %s\n", u.UserID, u.Username)
	}
	return nil
}

func (a *App) Audit(ctx context.Context) error {
	chain, err := a.api.Chain(ctx)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Ledger length: %d\n", chain.Length)
	if chain.IsValid {
		fmt.Fprintln(a.out, "Chain is VALID")
	} else {
		fmt.Fprintln(a.out, "Chain is INVALID")
		if chain.FirstInvalidIndex != nil {
			fmt.Fprintf(a.out, "First broken record: %d\n", *chain.FirstInvalidIndex)
		}
	}
	return nil
}
