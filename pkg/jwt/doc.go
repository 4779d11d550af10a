// Package jwt verifies the HS256 access tokens issued by the account
// service and guards HTTP routes with them.
//
//	svc, err := jwt.New(jwt.Config{Secret: os.Getenv("JWT_SECRET")})
//	r.Use(jwt.Middleware(svc, nil))
//
// Handlers read the caller with ClaimsFromContext.
package jwt
