package server

import (
	"net/http"
	"strings"

	"github.com/miu-servicedesk/portal/routeguard"
	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
)

const contentTypeHTML = "text/html; charset=utf-8"

// AuthPageData feeds the index and signup templates.
type AuthPageData struct {
	AppName    string
	Error      string
	ErrorField string
	Notice     string
	Email      string
	FirstName  string
	LastName   string
	Pending    *session.Pending
}

// PageData feeds the generic authenticated page template.
type PageData struct {
	AppName string
	Page    string
	Title   string
	User    *users.User
	Nav     []routeguard.NavItem
	Flash   string
}

// PageHandler renders whatever page the guard allowed through.
func (s *Server) PageHandler() http.HandlerFunc {
	indexTmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}
	signupTmpl, err := ParseTemplate("signup.html")
	if err != nil {
		panic("Failed to parse signup template: " + err.Error())
	}
	pageTmpl, err := ParseTemplate("page.html")
	if err != nil {
		panic("Failed to parse page template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		page := pageFrom(ctx)
		state := stateFrom(ctx)
		store := storeFrom(ctx)

		w.Header().Set("Content-Type", contentTypeHTML)

		switch page {
		case routeguard.PageIndex:
			data := AuthPageData{
				AppName: s.config.GetAppName(),
				Error:   r.URL.Query().Get("error"),
				Notice:  r.URL.Query().Get("notice"),
				Email:   r.URL.Query().Get("email"),
				Pending: state.Pending,
			}
			if err := indexTmpl.Execute(w, data); err != nil {
				s.logger.Err(err).Msg("failed to render index page")
			}

		case routeguard.PageSignup:
			data := AuthPageData{
				AppName:    s.config.GetAppName(),
				Error:      r.URL.Query().Get("error"),
				ErrorField: r.URL.Query().Get("field"),
				Email:      r.URL.Query().Get("email"),
				FirstName:  r.URL.Query().Get("firstName"),
				LastName:   r.URL.Query().Get("lastName"),
			}
			if err := signupTmpl.Execute(w, data); err != nil {
				s.logger.Err(err).Msg("failed to render signup page")
			}

		default:
			flash, err := store.TakeFlash(ctx)
			if err != nil {
				s.logger.Err(err).Msg("failed to consume flash")
			}

			var user *users.User
			if state.User != nil {
				user = state.User
				user.Normalize()
			}

			data := PageData{
				AppName: s.config.GetAppName(),
				Page:    page,
				Title:   pageTitle(page),
				User:    user,
				Nav:     routeguard.NavFor(page, state),
				Flash:   flash,
			}
			if err := pageTmpl.Execute(w, data); err != nil {
				s.logger.Err(err).Msg("failed to render page")
			}
		}
	}
}

// pageTitle derives a heading from the page identity, preferring the
// sidebar label when the page has one.
func pageTitle(page string) string {
	for _, item := range routeguard.NavFor(page, &session.State{Token: "x", User: &users.User{Roles: users.AllRoles}}) {
		if item.Page == page {
			return item.Label
		}
	}

	name := strings.TrimSuffix(page, ".html")
	name = strings.ReplaceAll(name, "-", " ")
	if name == "" {
		return "Portal"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
