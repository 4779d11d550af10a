// Package environment names the deployment environment the service runs in
// (development, staging, production) and propagates it through
// context.Context, HTTP requests and structured logs.
//
// Parse normalises the value read from configuration, accepting the short
// aliases "dev", "stage" and "prod":
//
//	env := environment.Parse(cfg.Env)
//	if env.IsProduction() {
//	    // real providers only
//	}
//
// Middleware attaches the environment to every request context and
// LoggerExtractor exposes it to pkg/logger as an "env" attribute.
package environment
