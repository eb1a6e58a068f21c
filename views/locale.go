package views

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Labels are the user-facing strings for one language.
type Labels struct {
	LoadMore        string
	ExitPreview     string
	Loading         string
	Previous        string
	Next            string
	NotFound        string
	NotFoundText    string
	ServerError     string
	ServerErrorText string
	BackHome        string
	editedOn        string
	at              string
	months          [12]string
}

var supported = []language.Tag{
	language.BrazilianPortuguese, // first entry is the fallback
	language.English,
}

var matcher = language.NewMatcher(supported)

var labels = map[language.Tag]Labels{
	language.BrazilianPortuguese: {
		LoadMore:        "Carregar mais posts",
		ExitPreview:     "Sair do modo Preview",
		Loading:         "Carregando...",
		Previous:        "Post anterior",
		Next:            "Próximo post",
		NotFound:        "Página não encontrada",
		NotFoundText:    "O post que você procura não existe ou foi removido.",
		ServerError:     "Algo deu errado",
		ServerErrorText: "Não foi possível carregar esta página. Tente novamente em instantes.",
		BackHome:        "Voltar para o início",
		editedOn:        "editado em",
		at:              "às",
		months:          [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	},
	language.English: {
		LoadMore:        "Load more posts",
		ExitPreview:     "Exit preview mode",
		Loading:         "Loading...",
		Previous:        "Previous post",
		Next:            "Next post",
		NotFound:        "Page not found",
		NotFoundText:    "The post you are looking for does not exist or was removed.",
		ServerError:     "Something went wrong",
		ServerErrorText: "This page could not be loaded. Please try again shortly.",
		BackHome:        "Back to home",
		editedOn:        "edited on",
		at:              "at",
		months:          [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	},
}

// Locale formats dates and picks labels for one language.
type Locale struct {
	Labels
	Tag language.Tag
	loc *time.Location
}

// NewLocale matches name against the supported languages. Unknown or empty
// names fall back to Brazilian Portuguese.
func NewLocale(name string, loc *time.Location) Locale {
	tag := language.Make(name)
	_, idx, _ := matcher.Match(tag)
	best := supported[idx]
	return Locale{Labels: labels[best], Tag: best, loc: loc}
}

func (l Locale) in(t time.Time) time.Time {
	if l.loc != nil {
		return t.In(l.loc)
	}
	return t
}

// Date formats t as "d MMM y", e.g. "15 mar 2021".
func (l Locale) Date(t time.Time) string {
	t = l.in(t)
	return fmt.Sprintf("%d %s %d", t.Day(), l.months[t.Month()-1], t.Year())
}

// Time formats t as "HH:mm".
func (l Locale) Time(t time.Time) string {
	return l.in(t).Format("15:04")
}

// Edited returns the edited notice for a post last published at t.
func (l Locale) Edited(t time.Time) string {
	return fmt.Sprintf("* %s %s, %s %s", l.editedOn, l.Date(t), l.at, l.Time(t))
}

// Lang is the value of the html lang attribute.
func (l Locale) Lang() string {
	return l.Tag.String()
}
