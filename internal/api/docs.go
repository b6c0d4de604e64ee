package api

const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>PCR Agent API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <nav style="
    position: fixed;
    top: 12px;
    right: 16px;
    z-index: 9999;
    display: flex;
    gap: 8px;
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    font-size: 12px;
  ">
    <a href="/" style="background:#161b22;border:1px solid #30363d;border-radius:6px;color:#58a6ff;padding:5px 12px;text-decoration:none;">Dashboard</a>
    <a href="/docs/stream" style="background:#161b22;border:1px solid #30363d;border-radius:6px;color:#58a6ff;padding:5px 12px;text-decoration:none;">Stream Docs →</a>
  </nav>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`

const streamDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Streams · PCR Agent</title>
  <style>
    body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; font-size: 14px; line-height: 1.65; background: #0d1117; color: #c9d1d9; }
    main { max-width: 860px; margin: 0 auto; padding: 32px 16px 64px; }
    a { color: #58a6ff; text-decoration: none; }
    h1 { color: #e6edf3; font-size: 26px; margin: 0 0 8px; }
    h2 { color: #e6edf3; font-size: 18px; margin: 36px 0 12px; padding-bottom: 8px; border-bottom: 1px solid #21262d; }
    table { width: 100%; border-collapse: collapse; font-size: 13px; margin-bottom: 20px; }
    th { text-align: left; padding: 8px 12px; background: #161b22; color: #8b949e; border-bottom: 1px solid #30363d; }
    td { padding: 8px 12px; border-bottom: 1px solid #21262d; vertical-align: top; }
    code, pre { font-family: "SFMono-Regular", Consolas, Menlo, monospace; font-size: 12px; background: #161b22; border: 1px solid #30363d; border-radius: 4px; }
    code { padding: 1px 5px; color: #e6edf3; }
    pre { padding: 14px 16px; overflow-x: auto; }
    pre code { border: none; padding: 0; }
  </style>
</head>
<body>
<main>
  <p><a href="/docs">← REST API docs</a></p>
  <h1>Event Streams</h1>
  <p>Every poll cycle publishes a <code>report</code> event; every loop state change publishes a <code>status</code> event.
     New subscribers immediately receive the latest event of each feed.</p>

  <h2>Endpoints</h2>
  <table>
    <tr><th>Path</th><th>Transport</th><th>Framing</th></tr>
    <tr><td><code>GET /api/v1/stream</code></td><td>Server-Sent Events</td><td><code>event: &lt;feed&gt;</code> + <code>data: &lt;json&gt;</code></td></tr>
    <tr><td><code>GET /api/v1/ws</code></td><td>WebSocket</td><td>text frames <code>{"feed": "...", "data": {...}}</code></td></tr>
  </table>
  <p>Both accept <code>?feeds=report,status</code> to receive only the named feeds.</p>

  <h2>Feeds</h2>
  <table>
    <tr><th>Feed</th><th>Payload</th></tr>
    <tr><td><code>report</code></td><td>Snapshot: <code>id</code>, <code>symbol</code>, <code>source</code>, <code>simulated</code>, <code>sync_label</code>, <code>report</code> (spot, pcr, pcr_delta, max_pain, put_oi, call_oi, chain_pcr, signal, sentiment, momentum, window)</td></tr>
    <tr><td><code>status</code></td><td>Loop status: <code>active_index</code>, <code>cycles</code>, <code>failures</code>, <code>last_error</code>, <code>connection</code></td></tr>
  </table>

  <h2>Examples</h2>
  <pre><code>curl -N http://127.0.0.1:8190/api/v1/stream?feeds=report</code></pre>
  <pre><code>const ws = new WebSocket("ws://127.0.0.1:8190/api/v1/ws");
ws.onmessage = (m) =&gt; {
  const { feed, data } = JSON.parse(m.data);
  if (feed === "report") console.log(data.symbol, data.report.pcr);
};</code></pre>
</main>
</body>
</html>`
