// Package assets contains static content that is compiled into the binary.
package assets

// StatusPageHTML is the template used to render HTML status pages.
const StatusPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Code}} {{.Text}}</title>
<style>
body { font-family: sans-serif; color: #333; background: #f5f5f5; }
main { max-width: 40em; margin: 15vh auto 0; padding: 2em; background: #fff; border-radius: 4px; }
h1 { font-size: 1.4em; margin: 0 0 0.5em; }
p { margin: 0; color: #666; }
</style>
</head>
<body>
<main>
<h1>{{.Code}} {{.Text}}</h1>
<p>{{.Message}}</p>
</main>
</body>
</html>
`

// StatusPageText is the template used to render plain-text status pages.
const StatusPageText = `{{.Code}} {{.Text}}

{{.Message}}
`
