// Package common contains shared constants and sentinel errors used across
// SecureCloudX components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on authenticated requests.
const AccessTokenHeaderName = "Authorization"
