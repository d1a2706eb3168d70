package main

import (
	"net/http"
	"time"
)

// timeoutBody has no scripts because the page doesn't know the CSP nonce of the request.
const timeoutBody = `<!doctype html>
<html lang="en">
<head><title>Timeout · Guess Who</title></head>
<body>
<h1>That took too long</h1>
<p><a href="">Try again</a> or go back to the <a href="/members">lobby</a>.</p>
</body>
</html>
`

// timeoutHandler responds with 503 Service Unavailable when the handler does not meet the deadline.
func timeoutHandler(h http.Handler, serverTimeout time.Duration) http.Handler {
	// Respond a little before the server's write timeout closes the connection.
	return http.TimeoutHandler(h, serverTimeout-500*time.Millisecond, timeoutBody) //nolint:mnd // 500ms
}
