package handlers

import (
	"net/http"

	"golang.org/x/text/language"

	"headshotpro/internal/middleware"
	"headshotpro/internal/styles"
)

type stylesResponse struct {
	Styles     []styles.Style    `json:"styles"`
	Categories []styles.Category `json:"categories"`
}

func (a *App) ListStyles(w http.ResponseWriter, r *http.Request) {
	tag := language.Make(middleware.LocaleFromContext(r.Context()))
	a.json(w, http.StatusOK, stylesResponse{
		Styles:     styles.ByCategory(r.URL.Query().Get("category")),
		Categories: styles.Categories(tag),
	})
}
