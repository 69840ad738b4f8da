// Command messctl talks to a running mess-service from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/Cheertaboi/mess-coupon-service/internal/eligibility"
	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/pkg/messclient"
)

const (
	defaultServer   = "http://localhost:8080"
	defaultTimezone = "Asia/Kolkata"
)

var clock = time.Now

type envLookup func(string) (string, bool)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, "messctl:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: messctl [-server URL] [-session FILE] <command> [flags]

commands:
  signin  -email E [-password P]     sign in and remember the session
  signout                            forget the session
  coupons [-min-days N] [-tz ZONE]   show your coupons and purchase window,
                                     deciding the window locally with -min-days
  menu                               show the weekly menu
  notices                            list notices`)
}

func run(ctx context.Context, args []string, stdout io.Writer, lookup envLookup) error {
	fs := flag.NewFlagSet("messctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	server := fs.String("server", envOr(lookup, "MESS_SERVER_URL", defaultServer), "mess-service base URL")
	session := fs.String("session", envOr(lookup, "MESS_SESSION", defaultSessionPath()), "session file")
	if err := fs.Parse(args); err != nil {
		usage(stdout)
		return err
	}
	if fs.NArg() == 0 {
		usage(stdout)
		return errors.New("missing command")
	}

	client := messclient.New(*server, messclient.FileStore{Path: *session})
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "signin":
		return signIn(ctx, client, rest, stdout, lookup)
	case "signout":
		return client.SignOut()
	case "coupons":
		return showCoupons(ctx, client, rest, stdout, lookup)
	case "menu":
		return showMenu(ctx, client, stdout)
	case "notices":
		return showNotices(ctx, client, stdout)
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func signIn(ctx context.Context, c *messclient.Client, args []string, stdout io.Writer, lookup envLookup) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	password := fs.String("password", envOr(lookup, "MESS_PASSWORD", ""), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("signin needs -email and -password (or MESS_PASSWORD)")
	}
	s, err := c.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	role := "student"
	if s.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(stdout, "signed in as %s (%s)\n", s.Email, role)
	return nil
}

func showCoupons(ctx context.Context, c *messclient.Client, args []string, stdout io.Writer, lookup envLookup) error {
	fs := flag.NewFlagSet("coupons", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	minDays := fs.Int("min-days", 0, "elapsed days before the next week opens; 0 uses the server's decision")
	tz := fs.String("tz", envOr(lookup, "MESS_TIMEZONE", defaultTimezone), "mess timezone")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		status *messclient.CouponStatus
		p      eligibility.Decision
	)
	if *minDays > 0 {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			return fmt.Errorf("timezone %q: %w", *tz, err)
		}
		c.SetMinElapsedDays(*minDays)
		s, d, err := c.PurchaseGate(ctx, clock().In(loc))
		if err != nil {
			return err
		}
		status, p = s, d
	} else {
		s, err := c.Coupons(ctx)
		if err != nil {
			return err
		}
		status, p = s, s.Purchase
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	printWeek(tw, "this week", status.Coupons.CurrentWeek)
	printWeek(tw, "next week", status.Coupons.NextWeek)
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case p.Allowed:
		fmt.Fprintln(stdout, "purchase: open")
	case p.OpensAt != nil:
		fmt.Fprintf(stdout, "purchase: opens %s\n", p.OpensAt.Format("Mon 2 Jan 15:04"))
	default:
		fmt.Fprintf(stdout, "purchase: closed (%s)\n", p.Reason)
	}
	return nil
}

func printWeek(w io.Writer, label string, c *models.WeekCoupon) {
	if c == nil {
		fmt.Fprintf(w, "%s:\tnone\n", label)
		return
	}
	fmt.Fprintf(w, "%s:\t%s\n", label, c.WeekStart.Format(time.DateOnly))
	fmt.Fprintf(w, "\t%s\n", strings.Join(shortDays(), "\t"))
	for m := models.Breakfast; m <= models.Dinner; m++ {
		cells := make([]string, models.DaysPerWeek)
		for d := range cells {
			switch {
			case c.Taken.Has(m, d):
				cells[d] = "x"
			case c.Selections.Has(m, d):
				cells[d] = "o"
			default:
				cells[d] = "."
			}
		}
		fmt.Fprintf(w, "%s\t%s\n", m, strings.Join(cells, "\t"))
	}
}

func shortDays() []string {
	out := make([]string, models.DaysPerWeek)
	for i, d := range models.DayNames {
		out[i] = d[:3]
	}
	return out
}

func showMenu(ctx context.Context, c *messclient.Client, stdout io.Writer) error {
	days, err := c.Menu(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "day\tbreakfast\tlunch\tdinner")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Day, d.Breakfast, d.Lunch, d.Dinner)
	}
	return tw.Flush()
}

func showNotices(ctx context.Context, c *messclient.Client, stdout io.Writer) error {
	notices, err := c.Notices(ctx)
	if err != nil {
		return err
	}
	if len(notices) == 0 {
		fmt.Fprintln(stdout, "no notices")
		return nil
	}
	for _, n := range notices {
		fmt.Fprintf(stdout, "[%s] %s\n  %s\n", n.CreatedAt.Format("2 Jan 15:04"), n.Subject, n.Body)
	}
	return nil
}

func envOr(lookup envLookup, key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func defaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "messctl", "session.json")
	}
	return ".messctl-session.json"
}
