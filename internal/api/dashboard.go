package api

// dashboardHTML renders the live view from the SSE stream. It only reads
// /api/v1/indices once and switches index through PUT /api/v1/index.
const dashboardHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>PCR Agent</title>
  <style>
    body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #0d1117; color: #c9d1d9; }
    header { display: flex; align-items: center; gap: 16px; padding: 12px 24px; background: #161b22; border-bottom: 1px solid #30363d; }
    header h1 { font-size: 16px; margin: 0; color: #e6edf3; }
    header .spacer { flex: 1; }
    header a { color: #58a6ff; font-size: 13px; text-decoration: none; }
    select { background: #0d1117; color: #e6edf3; border: 1px solid #30363d; border-radius: 6px; padding: 4px 8px; }
    main { max-width: 1100px; margin: 0 auto; padding: 24px; }
    .banner { padding: 12px 16px; border-radius: 6px; margin-bottom: 20px; font-weight: 600; background: #21262d; }
    .banner.strong_bullish, .banner.bullish { background: #0f3d24; color: #3fb950; }
    .banner.strong_bearish, .banner.bearish { background: #4a1619; color: #f85149; }
    .sim { background: #3d2e00; color: #d29922; padding: 8px 16px; border-radius: 6px; margin-bottom: 12px; display: none; }
    .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(150px, 1fr)); gap: 12px; margin-bottom: 24px; }
    .card { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px; }
    .card .label { font-size: 11px; text-transform: uppercase; letter-spacing: .06em; color: #8b949e; }
    .card .value { font-size: 20px; color: #e6edf3; margin-top: 4px; }
    svg { width: 100%; height: 160px; background: #161b22; border: 1px solid #30363d; border-radius: 6px; margin-bottom: 24px; }
    table { width: 100%; border-collapse: collapse; font-size: 13px; }
    th { text-align: right; padding: 6px 10px; color: #8b949e; border-bottom: 1px solid #30363d; }
    td { text-align: right; padding: 6px 10px; border-bottom: 1px solid #21262d; font-variant-numeric: tabular-nums; }
    tr.atm td { background: #1f2a3a; color: #e6edf3; font-weight: 600; }
    footer { color: #8b949e; font-size: 12px; margin-top: 16px; }
  </style>
</head>
<body>
<header>
  <h1>PCR Agent</h1>
  <select id="index"></select>
  <span id="sync">waiting for first sync…</span>
  <span class="spacer"></span>
  <a href="/docs">API docs</a>
</header>
<main>
  <div class="sim" id="sim">Simulated data source (PCR_SOURCE=sim).</div>
  <div class="banner" id="banner">Neutral</div>
  <div class="grid">
    <div class="card"><div class="label">Spot</div><div class="value" id="spot">–</div></div>
    <div class="card"><div class="label">PCR</div><div class="value" id="pcr">–</div></div>
    <div class="card"><div class="label">PCR vs 1.0</div><div class="value" id="delta">–</div></div>
    <div class="card"><div class="label">Max Pain</div><div class="value" id="maxpain">–</div></div>
    <div class="card"><div class="label">Put OI</div><div class="value" id="putoi">–</div></div>
    <div class="card"><div class="label">Call OI</div><div class="value" id="calloi">–</div></div>
    <div class="card"><div class="label">Chain Put OI</div><div class="value" id="chainputoi">–</div></div>
    <div class="card"><div class="label">Chain Call OI</div><div class="value" id="chaincalloi">–</div></div>
    <div class="card"><div class="label">Chain PCR</div><div class="value" id="chainpcr">–</div></div>
    <div class="card"><div class="label">Momentum</div><div class="value" id="momentum">–</div></div>
  </div>
  <svg id="trend" viewBox="0 0 600 160" preserveAspectRatio="none"></svg>
  <table>
    <thead><tr><th>Strike</th><th>Call OI</th><th>Put OI</th><th>Call Chg</th><th>Put Chg</th></tr></thead>
    <tbody id="ladder"></tbody>
  </table>
  <footer id="status"></footer>
</main>
<script>
(function () {
  var $ = function (id) { return document.getElementById(id); };
  var fmt = function (n) { return n == null ? "–" : Number(n).toLocaleString("en-IN"); };
  var current = "";

  function loadHistory(symbol) {
    fetch("/api/v1/pcr/" + symbol + "/history").then(function (r) { return r.json(); }).then(function (h) {
      drawTrend(h.points || []);
    }).catch(function () {});
  }

  function drawTrend(points) {
    var svg = $("trend");
    if (points.length === 0) { svg.innerHTML = ""; return; }
    var vals = points.map(function (p) { return p.pcr; }).concat([1]);
    var lo = Math.min.apply(null, vals), hi = Math.max.apply(null, vals);
    if (hi === lo) { hi += 0.1; lo -= 0.1; }
    var y = function (v) { return 150 - (v - lo) / (hi - lo) * 140; };
    var step = points.length > 1 ? 600 / (points.length - 1) : 0;
    var d = points.map(function (p, i) { return (i ? "L" : "M") + (i * step) + "," + y(p.pcr); }).join(" ");
    svg.innerHTML = '<line x1="0" x2="600" y1="' + y(1) + '" y2="' + y(1) + '" stroke="#484f58" stroke-dasharray="4"/>' +
      '<path d="' + d + '" fill="none" stroke="#58a6ff" stroke-width="2"/>';
  }

  function render(snap) {
    var r = snap.report;
    if (snap.symbol !== current) { return; }
    $("sync").textContent = "Last sync " + snap.sync_label + (snap.expiry ? " · expiry " + snap.expiry : "");
    $("sim").style.display = snap.simulated ? "block" : "none";
    $("banner").className = "banner " + r.signal;
    $("banner").textContent = r.sentiment;
    $("spot").textContent = fmt(r.spot);
    $("pcr").textContent = r.pcr.toFixed(2);
    $("delta").textContent = (r.pcr_delta >= 0 ? "+" : "") + r.pcr_delta.toFixed(2);
    $("maxpain").textContent = fmt(r.max_pain);
    $("putoi").textContent = fmt(r.put_oi);
    $("calloi").textContent = fmt(r.call_oi);
    $("chainputoi").textContent = fmt(r.chain_put_oi);
    $("chaincalloi").textContent = fmt(r.chain_call_oi);
    $("chainpcr").textContent = r.chain_pcr.toFixed(2);
    $("momentum").textContent = r.momentum;
    $("ladder").innerHTML = (r.window || []).map(function (row) {
      var cls = row.strike === r.atm_strike ? ' class="atm"' : "";
      return "<tr" + cls + "><td>" + fmt(row.strike) + "</td><td>" + fmt(row.call_oi) + "</td><td>" + fmt(row.put_oi) +
        "</td><td>" + fmt(row.call_oi_change) + "</td><td>" + fmt(row.put_oi_change) + "</td></tr>";
    }).join("");
    loadHistory(snap.symbol);
  }

  function renderStatus(st) {
    current = st.active_index;
    $("index").value = current;
    var text = "Source " + st.source + " · " + st.cycles + " cycles · " + st.failures + " failures · " + st.connection;
    if (st.last_error) { text += " · last error: " + st.last_error; }
    $("status").textContent = text;
  }

  fetch("/api/v1/indices").then(function (r) { return r.json(); }).then(function (ix) {
    current = ix.active;
    ix.indices.forEach(function (s) {
      var o = document.createElement("option");
      o.value = s; o.textContent = s;
      $("index").appendChild(o);
    });
    $("index").value = current;
    loadHistory(current);
  });

  $("index").addEventListener("change", function (e) {
    fetch("/api/v1/index", {
      method: "PUT",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ symbol: e.target.value })
    });
  });

  var es = new EventSource("/api/v1/stream");
  es.addEventListener("report", function (e) { render(JSON.parse(e.data)); });
  es.addEventListener("status", function (e) { renderStatus(JSON.parse(e.data)); });
})();
</script>
</body>
</html>`
