package server

import "net/http"

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>VoiceScamShield</title>
</head>
<body>
<h1>VoiceScamShield</h1>
<p>Streaming voice-scam analysis. Connect a WebSocket to
<code>/ws/{call_id}</code> and send <code>chunk</code> messages with
base64-encoded 16&nbsp;kHz mono PCM16 audio; analysis events stream back on
the same connection. Send <code>end_call</code> to flush pending audio and
receive the segment report.</p>
<p>Operational endpoints: <a href="/healthz">/healthz</a>,
<a href="/readyz">/readyz</a>, <a href="/metrics">/metrics</a>.</p>
</body>
</html>
`

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}
