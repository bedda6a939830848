package web

import "embed"

// MailTemplates embeds the transactional email bodies.
//
//go:embed templates/mail/*.html templates/mail/*.txt
var MailTemplates embed.FS
