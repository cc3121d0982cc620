package http

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

type windowTab struct {
	Value  core.Window
	Label  string
	Active bool
	Href   string
}

type dashboardData struct {
	Summary    core.Summary
	Expenses   []core.Expense
	Shown      int
	TotalCount int
	Filter     core.Filter
	Windows    []windowTab
	Categories core.Catalogue
	Today      string
	Error      string
}

var windowLabels = map[core.Window]string{
	core.WindowAll:   "All",
	core.WindowToday: "Today",
	core.WindowWeek:  "This Week",
	core.WindowMonth: "This Month",
}

// handleDashboard renders the summary cards, the filtered list and the add
// form.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f := filterFromValues(r.URL.Query(), "")
	data := dashboardData{
		Filter:     f,
		Categories: s.expenses.Catalogue(),
		Today:      core.FormatDate(s.expenses.Now()),
		Expenses:   []core.Expense{},
		Summary:    core.Summarize(nil, s.expenses.Catalogue(), s.expenses.Now()),
	}
	for _, win := range core.Windows() {
		tf := f
		tf.Window = win
		data.Windows = append(data.Windows, windowTab{
			Value:  win,
			Label:  windowLabels[win],
			Active: win == f.Window,
			Href:   "/" + filterQuery(tf),
		})
	}

	status := http.StatusOK
	view, err := s.expenses.Query(r.Context(), f)
	if err != nil {
		applog.LogError(r.Context(), "Dashboard load failed", err, applog.ComponentStorage, applog.OpList, nil)
		status = http.StatusInternalServerError
		data.Error = "Expenses could not be loaded. Please try again."
	} else {
		data.Summary = view.Summary
		data.Expenses = view.Filtered
		data.Shown = len(view.Filtered)
		data.TotalCount = len(view.All)
	}

	s.render(w, r, status, "index.html", data)
}

// handleFormCreate stores the dashboard form and redirects back to the
// dashboard with the same filters. Failures are logged only.
func (s *Server) handleFormCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		applog.LogError(r.Context(), "Parse form error", err, applog.ComponentHTTP, applog.OpParse, nil)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	e, err := expenseFromForm(r.PostForm)
	if err == nil {
		_, err = s.expenses.CreateExpense(r.Context(), e)
	}
	if err != nil {
		logFormFailure(r, "Expense form rejected", err, applog.OpCreate)
	}

	http.Redirect(w, r, "/"+filterQuery(filterFromValues(r.PostForm, formFilterPrefix)), http.StatusSeeOther)
}

// handleFormDelete deletes the expense named by the form's id and redirects
// back to the dashboard.
func (s *Server) handleFormDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		applog.LogError(r.Context(), "Parse form error", err, applog.ComponentHTTP, applog.OpParse, nil)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), sanitizeInput(r.PostForm.Get("id"))); err != nil {
		logFormFailure(r, "Expense delete failed", err, applog.OpDelete)
	}

	http.Redirect(w, r, "/"+filterQuery(filterFromValues(r.PostForm, formFilterPrefix)), http.StatusSeeOther)
}

func logFormFailure(r *http.Request, msg string, err error, op string) {
	if core.IsValidation(err) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentExpense).WarnContext(r.Context(), msg,
			applog.FieldOperation, op, applog.FieldError, err.Error())
		return
	}
	applog.LogError(r.Context(), msg, err, applog.ComponentStorage, op, nil)
}

// render executes name into a buffer so a template failure still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.LogFields{"template": name})
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func templateFuncs(catalogue core.Catalogue) template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return "$" + core.FormatAmount(d)
		},
		"shortDate": func(s string) string {
			t, err := core.ParseDate(s, time.UTC)
			if err != nil {
				return s
			}
			return t.Format("Jan 2")
		},
		"display": catalogue.Display,
	}
}
