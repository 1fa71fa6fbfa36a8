package demoserver

// DocumentVersion is one revision of a served document.
type DocumentVersion struct {
	Body        string
	ContentType string
	// Status overrides 200 to simulate a broken source.
	Status int
}

// DocumentDefinition holds all versions of a single document.
type DocumentDefinition struct {
	Path        string
	Description string
	Versions    map[int]DocumentVersion
}

// GetAllDocuments returns all demo document definitions.
func GetAllDocuments() []DocumentDefinition {
	return []DocumentDefinition{
		getIntroDoc(),
		getReleaseNotesDoc(),
		getCompatDoc(),
		getFlakyDoc(),
	}
}

const markdownType = "text/markdown; charset=utf-8"

// ===== INTRO =====
func getIntroDoc() DocumentDefinition {
	return DocumentDefinition{
		Path:        "/docs/intro.md",
		Description: "Introduction with emphasis and a link",
		Versions: map[int]DocumentVersion{
			1: {
				ContentType: markdownType,
				Body: `# Getting started

Install the tool and point it at a **Markdown** file.

See the [release notes](/docs/release-notes.md) for what changed.
`,
			},
			2: {
				ContentType: markdownType,
				Body: `# Getting started

Install the tool and point it at a **Markdown** file. Relative sources are
resolved against the page they are injected into.

See the [release notes](/docs/release-notes.md) for what changed.
`,
			},
		},
	}
}

// ===== RELEASE NOTES =====
func getReleaseNotesDoc() DocumentDefinition {
	return DocumentDefinition{
		Path:        "/docs/release-notes.md",
		Description: "Release notes using strikethrough",
		Versions: map[int]DocumentVersion{
			1: {
				ContentType: markdownType,
				Body: `## 1.0

- first release
`,
			},
			2: {
				ContentType: markdownType,
				Body: `## 1.1

- ~~empty content on failed fetches~~ errors are reported instead
- tables and strikethrough are rendered

## 1.0

- first release
`,
			},
			3: {
				ContentType: markdownType,
				Body: `## 1.2

- per-element ordering: the last started injection wins

## 1.1

- ~~empty content on failed fetches~~ errors are reported instead
- tables and strikethrough are rendered

## 1.0

- first release
`,
			},
		},
	}
}

// ===== COMPATIBILITY TABLE =====
func getCompatDoc() DocumentDefinition {
	return DocumentDefinition{
		Path:        "/docs/compat.md",
		Description: "Pipe table",
		Versions: map[int]DocumentVersion{
			1: {
				ContentType: "text/plain; charset=utf-8",
				Body: `| Backend  | JavaScript |
|----------|------------|
| nethttp  | no         |
| chromedp | yes        |
`,
			},
		},
	}
}

// ===== FLAKY =====
func getFlakyDoc() DocumentDefinition {
	return DocumentDefinition{
		Path:        "/docs/flaky.md",
		Description: "Healthy in v1, returns 500 in v2",
		Versions: map[int]DocumentVersion{
			1: {ContentType: markdownType, Body: "Everything is *fine*.\n"},
			2: {ContentType: "text/plain", Body: "internal error\n", Status: 500},
		},
	}
}

// hostPageHTML is served at / and carries the injection targets.
const hostPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Demo Docs</title>
</head>
<body>
    <header><h1>Demo Docs</h1></header>
    <main id="content"><p>Loading…</p></main>
    <aside id="release-notes"></aside>
    <section id="compat"></section>
    <footer id="status"></footer>
</body>
</html>`
