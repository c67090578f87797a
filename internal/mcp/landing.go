package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>OneContext MCP Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f8fafc; color: #0f172a; margin: 0; padding: 3rem 1rem; }
  main { max-width: 640px; margin: 0 auto; }
  h1 { font-size: 1.6rem; margin-bottom: 0.25rem; }
  p.lead { color: #475569; margin-top: 0; }
  h2 { font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.08em; color: #64748b; margin-top: 2rem; }
  pre { background: #0f172a; color: #e2e8f0; border-radius: 6px; padding: 0.9rem; overflow-x: auto; font-size: 0.85rem; }
  code { font-family: "SF Mono", Menlo, monospace; }
  ul { padding-left: 1.2rem; }
  li { margin: 0.3rem 0; }
</style>
</head>
<body>
<main>
  <h1>OneContext MCP Server</h1>
  <p class="lead">Hybrid search over your OneContext contexts through the Model Context Protocol.</p>

  <h2>Connect</h2>
  <pre><code>{"mcpServers": {"onecontext": {"type": "http", "url": "http://localhost:8080/mcp"}}}</code></pre>

  <h2>Tools</h2>
  <ul>
    <li><code>search_context</code> &middot; semantic and full-text search within a context</li>
    <li><code>get_chunks</code> &middot; chunks selected by metadata filter</li>
    <li><code>list_contexts</code> &middot; contexts on the account</li>
    <li><code>list_files</code> &middot; files in a context and their processing status</li>
  </ul>

  <h2>Endpoints</h2>
  <ul>
    <li><a href="/mcp"><code>/mcp</code></a> &middot; MCP Streamable HTTP</li>
    <li><a href="/health"><code>/health</code></a> &middot; API reachability check</li>
  </ul>
</main>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(landingHTML))
	}
}
