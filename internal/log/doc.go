// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of cookies, auth headers and tokens
//   - Masking of passwords and token query parameters inside URLs
//   - Warn level by default, Debug in verbose mode
//   - Optional size-rotated JSON log file next to the console output
//
// Per-host site configurations can carry cookies and custom headers, and
// sitemap URLs sometimes carry access tokens. Even in verbose mode these
// are masked so that logs can be shared.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("fetching sitemap",
//	    "url", "https://user:pw@example.com/sitemap.xml?token=abc", // password and token masked
//	    "cookie", "session=abc123", // masked entirely
//	)
//
//	// Console plus rotated JSON file
//	file := log.NewRotatingFile("/var/log/sitemapcrawl.log")
//	defer file.Close()
//	logger = log.NewTeeLogger(os.Stderr, file, false)
package log
