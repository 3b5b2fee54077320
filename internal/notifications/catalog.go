// Package notifications renders user-facing notifications from a fixed
// template catalog, persists them and pushes them to the user's channel.
package notifications

import (
	"sort"
	"strings"

	"marketplace-chat/internal/models"
)

// Template is the default title, message pattern and link pattern of a type.
type Template struct {
	Title   string
	Message string
	Link    string
}

// Catalog is the immutable set of templates, built once at startup.
type Catalog struct {
	templates map[models.NotificationType]Template
}

// NewCatalog returns the marketplace template catalog.
func NewCatalog() Catalog {
	return Catalog{templates: map[models.NotificationType]Template{
		models.NotificationChat: {
			Title:   "Pesan Baru",
			Message: "{sender_name} mengirim pesan baru",
			Link:    "/chat/{conversation_id}",
		},
		models.NotificationLike: {
			Title:   "Produk Disukai",
			Message: "{user_name} menyukai produk {product_name}",
			Link:    "/products/{product_id}",
		},
		models.NotificationOffer: {
			Title:   "Penawaran Baru",
			Message: "{buyer_name} menawar {product_name} seharga Rp {price}",
			Link:    "/products/{product_id}",
		},
		models.NotificationTransaction: {
			Title:   "Update Transaksi",
			Message: "Transaksi {transaction_code} {status}",
			Link:    "/transactions/{transaction_id}",
		},
		models.NotificationSystem: {
			Title:   "Pemberitahuan Sistem",
			Message: "{message}",
			Link:    "/notifications",
		},
	}}
}

// Lookup returns the template for t.
func (c Catalog) Lookup(t models.NotificationType) (Template, bool) {
	tmpl, ok := c.templates[t]
	return tmpl, ok
}

// Types lists the catalog keys in a stable order.
func (c Catalog) Types() []models.NotificationType {
	out := make([]models.NotificationType, 0, len(c.templates))
	for t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render resolves title, message and link. Values for the keys title, message
// and link replace the template strings; every {key} present in data is then
// substituted. Placeholders with no value stay in the output as written.
func (t Template) Render(data map[string]string) (title, message, link string) {
	title, message, link = t.Title, t.Message, t.Link
	if v, ok := data["title"]; ok {
		title = v
	}
	if v, ok := data["message"]; ok {
		message = v
	}
	if v, ok := data["link"]; ok {
		link = v
	}

	if len(data) == 0 {
		return title, message, link
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(title), r.Replace(message), r.Replace(link)
}
