/*
Package http serves the bot over HTTP with chi.

Routes:

	GET  /                              liveness banner
	GET  /health, /info, /metrics
	POST /telegram/webhook              Telegram Update in, {"ok":true} out
	POST /v1/messages                   synchronous message/reply
	GET  /v1/sessions/{userID}          persisted session
	GET  /v1/sessions/{userID}/events   SSE stream of session diffs
*/
package http
