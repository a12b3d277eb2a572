package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token value in AuthorizationHeaderName.
const BearerPrefix = "Bearer "
