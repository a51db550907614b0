// Command notenctl inspects grades from the command line.
//
//	notenctl report  -student <id>
//	notenctl predict -student <id> -target 5 [-weight 1]
//	notenctl hash-password <password>
//	notenctl seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	authmw "github.com/notenpfad/notenpfad/internal/auth/middleware"
	"github.com/notenpfad/notenpfad/internal/config"
	"github.com/notenpfad/notenpfad/internal/db"
	"github.com/notenpfad/notenpfad/internal/gradecalc"
	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: notenctl report|predict|hash-password|seed [flags]")

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "hash-password":
		if len(args) != 1 {
			return errors.New("usage: notenctl hash-password <password>")
		}
		h, err := authmw.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, h)
		return nil
	case "report":
		fs := flag.NewFlagSet("report", flag.ContinueOnError)
		student := fs.String("student", "", "student profile id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withStore(func(ctx context.Context, store notes.Store) error {
			s, err := loadStudent(ctx, store, *student)
			if err != nil {
				return err
			}
			renderReport(out, s)
			return nil
		})
	case "predict":
		fs := flag.NewFlagSet("predict", flag.ContinueOnError)
		student := fs.String("student", "", "student profile id")
		target := fs.Float64("target", gradecalc.PassMark, "target average")
		weight := fs.Float64("weight", 1.0, "weight of the next exam")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withStore(func(ctx context.Context, store notes.Store) error {
			recs, err := store.StudentRecords(ctx, *student)
			if err != nil {
				return err
			}
			p, err := gradecalc.NewEngine().Project(recs.Grades, recs.Weights, *target, *weight)
			if err != nil {
				return err
			}
			renderProjection(out, *target, p)
			return nil
		})
	case "seed":
		return withStore(func(ctx context.Context, store notes.Store) error {
			cfg := config.FromEnv()
			sd := notes.Seeder{Store: store, Hash: authmw.HashPassword, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
			if err := sd.EnsureDefaults(ctx, cfg.AdminPassword, cfg.StudentPassword); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(out, "default data present")
			return nil
		})
	default:
		return errUsage
	}
}

func withStore(fn func(context.Context, notes.Store) error) error {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.ParseDriver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()
	return fn(ctx, notes.NewSQLStore(dbh))
}

func loadStudent(ctx context.Context, store notes.Store, studentID string) (report.Student, error) {
	if studentID == "" {
		return report.Student{}, errors.New("-student is required")
	}
	st, err := store.GetStudent(ctx, studentID)
	if err != nil {
		return report.Student{}, err
	}
	acct, err := store.GetUser(ctx, st.UserID)
	if err != nil {
		return report.Student{}, err
	}
	return report.Load(ctx, store, gradecalc.NewEngine(), st.ID, acct.OwnerID())
}

func fmtScore(s gradecalc.Score) string {
	if !s.Present {
		return "-"
	}
	return strconv.FormatFloat(s.Value, 'f', 2, 64)
}

func renderReport(out io.Writer, s report.Student) {
	color.New(color.FgCyan).Fprintf(out, "\n=== %s (%s) ===\n", s.Profile.Name, s.Profile.TargetSchool)

	names := make(map[string]string, len(s.Subjects))
	for _, sub := range s.Subjects {
		names[sub.ID] = sub.Name
	}

	color.New(color.FgYellow).Fprintln(out, "\nGrades")
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Date", "Subject", "Type", "Value"})
	for _, g := range s.Grades {
		table.Append([]string{g.Date, names[g.SubjectID], g.Type, strconv.FormatFloat(g.Value, 'f', -1, 64)})
	}
	table.Render()

	c := s.Composite
	color.New(color.FgYellow).Fprintln(out, "\nComposite")
	table = tablewriter.NewWriter(out)
	table.SetHeader([]string{"Part", "Value"})
	rows := [][]string{
		{"Vornote", fmtScore(c.Details.Vornote.Value)},
		{"  Mathematik", fmtScore(c.Details.Vornote.Math)},
		{"  Deutsch", fmtScore(c.Details.Vornote.Deutsch)},
		{"Prüfung", fmtScore(c.Details.Exam.Value)},
		{"  Mathematik", fmtScore(c.Details.Exam.Math)},
		{"  Deutsch", fmtScore(c.Details.Exam.Deutsch.Value)},
		{"    Aufsatz", fmtScore(c.Details.Exam.Deutsch.Aufsatz)},
		{"    Sprachbetrachtung", fmtScore(c.Details.Exam.Deutsch.Sprachbetrachtung)},
	}
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	verdict := color.New(color.FgRed).Sprint("not passed")
	if c.Passed {
		verdict = color.New(color.FgGreen).Sprint("passed")
	}
	fmt.Fprintf(out, "\nGesamtnote: %.2f (%s)\n", c.Average, verdict)
}

func renderProjection(out io.Writer, target float64, p gradecalc.Projection) {
	if p.NoData {
		color.New(color.FgYellow).Fprintf(out, "Noch keine Noten vorhanden. Target: %.2f\n", target)
		return
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Target", "Current weight", "Next weight", "Required grade"})
	table.Append([]string{
		strconv.FormatFloat(target, 'f', 2, 64),
		strconv.FormatFloat(p.CurrentWeight, 'f', -1, 64),
		strconv.FormatFloat(p.NextWeight, 'f', -1, 64),
		fmtScore(p.Required),
	})
	table.Render()
}
