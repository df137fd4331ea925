package ui

// stylesheet is served inline; the dashboard is small enough that an asset
// pipeline would be overkill.
const stylesheet = `
:root { --border: #d0d7de; --muted: #57606a; --accent: #0969da; }
* { box-sizing: border-box; }
body { margin: 0; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; color: #1f2328; }
.shell { display: flex; min-height: 100vh; }
.sidebar { width: 220px; border-right: 1px solid var(--border); padding: 16px; }
.brand p { margin: 4px 0 16px; }
.muted { color: var(--muted); font-size: 13px; }
.nav { display: flex; flex-direction: column; gap: 4px; }
.nav-link { padding: 6px 8px; border-radius: 6px; color: inherit; text-decoration: none; }
.nav-link:hover { background: #f6f8fa; }
.nav-link.active { background: #ddf4ff; color: var(--accent); }
.main { flex: 1; padding: 24px; max-width: 1080px; }
.page-title { margin-top: 0; font-size: 22px; }
.cards { display: grid; grid-template-columns: repeat(auto-fill, minmax(280px, 1fr)); gap: 16px; }
.card { border: 1px solid var(--border); border-radius: 8px; padding: 16px; margin-bottom: 16px; }
.card h2 { margin-top: 0; font-size: 16px; }
.card.error, .bad-card { border-color: #cf222e; }
.ok-card { border-color: #1a7f37; }
.warn-card { border-color: #9a6700; }
.table { border-collapse: collapse; width: 100%; }
.table th, .table td { text-align: left; padding: 6px 10px; border-bottom: 1px solid var(--border); }
.badge { display: inline-block; padding: 2px 10px; border-radius: 12px; font-weight: 600; }
.badge.ok { background: #dafbe1; color: #1a7f37; }
.badge.warn { background: #fff8c5; color: #9a6700; }
.badge.bad { background: #ffebe9; color: #cf222e; }
.sql { background: #f6f8fa; border-radius: 6px; padding: 12px; overflow-x: auto; font-size: 13px; }
.btn { display: inline-block; padding: 6px 12px; border: 1px solid var(--border); border-radius: 6px; background: #f6f8fa; color: inherit; text-decoration: none; cursor: pointer; }
.btn:hover { background: #eef1f4; }
form label { display: block; margin-bottom: 4px; }
form select { margin-bottom: 12px; padding: 6px; min-width: 260px; }
`
