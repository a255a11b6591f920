package rewrite

import (
	"fmt"
	"strings"

	"github.com/feedpress/feedpress/internal/domain"
)

var toneDirectives = map[domain.Tone]string{
	domain.ToneProfessional:   "Write in a polished, professional voice suited to an industry publication.",
	domain.ToneCasual:         "Write in a relaxed, casual voice, like a knowledgeable friend.",
	domain.ToneAuthoritative:  "Write with confident authority, citing the underlying facts directly.",
	domain.ToneFriendly:       "Write in a warm, friendly and approachable voice.",
	domain.ToneWitty:          "Write with light wit and clever turns of phrase, without losing the substance.",
	domain.ToneFormal:         "Write in a formal register with precise, measured language.",
	domain.ToneConversational: "Write conversationally, addressing the reader directly.",
}

func systemPrompt(site domain.Site) string {
	var b strings.Builder
	b.WriteString("You are an editor for the publication \"")
	b.WriteString(site.Name)
	b.WriteString("\". You rewrite source articles into original, branded content.\n")

	directive, ok := toneDirectives[site.Tone]
	if !ok {
		directive = toneDirectives[domain.ToneProfessional]
	}
	b.WriteString(directive)
	b.WriteString("\n")

	if site.BrandContext != "" {
		b.WriteString("Brand context: ")
		b.WriteString(site.BrandContext)
		b.WriteString("\n")
	}

	b.WriteString(`Respond with a single JSON object and nothing else, using exactly these keys:
{"title": string, "content": string (HTML paragraphs), "excerpt": string (1-2 sentences), "meta_description": string (max 160 characters), "tags": [string, ...max 5]}
The rewrite must be substantially different wording from the source while keeping every fact accurate.`)

	return b.String()
}

func userPrompt(article domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original title: %s\n", article.OriginalTitle)
	if article.OriginalAuthor != "" {
		fmt.Fprintf(&b, "Original author: %s\n", article.OriginalAuthor)
	}
	b.WriteString("Original content:\n")
	b.WriteString(article.OriginalContent)
	return b.String()
}
