// duelctl drives the gridduel client pipeline from a shell: it is the
// stand-in for the mobile UI layer, consuming the same controllers and
// session events a real front end would.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gridduel/client-go/internal/api"
	"github.com/gridduel/client-go/internal/challenge"
	"github.com/gridduel/client-go/internal/config"
	"github.com/gridduel/client-go/internal/credstore"
	"github.com/gridduel/client-go/internal/model"
	"github.com/gridduel/client-go/internal/search"
	"github.com/gridduel/client-go/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	setLogLevel(cfg.LogLevel)

	store, err := credstore.OpenSQLite(cfg.CredentialsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open credential store")
	}
	defer store.Close()

	broker := session.NewBroker()
	defer broker.Close()
	go watchEvents(broker)

	sessions := session.NewController(store, broker, cfg.APIBaseURL, api.WithTimeout(cfg.HTTPTimeout()))

	app := &cli{cfg: cfg, sessions: sessions, broker: broker}
	if err := app.run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// watchEvents plays the role of the UI shell reacting to session events.
func watchEvents(broker *session.Broker) {
	sub := broker.Subscribe()
	for {
		select {
		case <-sub.Done:
			return
		case evt := <-sub.Events:
			switch evt.Type {
			case session.EventRouteLogin:
				fmt.Fprintln(os.Stderr, "-> session ended, run `duelctl login` to continue")
			case session.EventRouteHome:
				fmt.Fprintln(os.Stderr, "-> back to home")
			case session.EventNotice:
				fmt.Fprintf(os.Stderr, "-> %s\n", evt.Message)
			}
		}
	}
}

type cli struct {
	cfg      *config.Config
	sessions *session.Controller
	broker   *session.Broker
}

func (c *cli) run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	ctx := context.Background()

	switch args[0] {
	case "login":
		return c.login(ctx, args[1:])
	case "register":
		return c.register(ctx, args[1:])
	case "logout":
		return c.sessions.Logout()
	case "whoami":
		return c.whoami(ctx)
	case "search":
		return c.search(args[1:])
	case "challenge":
		return c.challenge(ctx, args[1:])
	case "respond":
		return c.respond(ctx, args[1:])
	case "leaderboard":
		return c.leaderboard(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: duelctl <command> [args]

commands:
  login <email> <password>
  register <username> <email> <password>
  logout
  whoami
  search [query]
  challenge <puzzle-id> <duration-seconds> <opponent-query>
  respond <challenge-id> accept|reject
  leaderboard`)
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	if err := c.sessions.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("logged in")
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: register <username> <email> <password>")
	}
	resp, err := c.sessions.Client().Register(ctx, model.RegisterRequest{
		Username: args[0], Email: args[1], Password: args[2],
	})
	if err != nil {
		return err
	}
	if err := c.sessions.OnLoginSuccess(resp.Token, resp.UserID); err != nil {
		return err
	}
	fmt.Printf("registered as %s\n", args[0])
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	profile, err := c.sessions.Client().CurrentUser(ctx)
	if err != nil {
		c.sessions.HandleError(err)
		return err
	}
	fmt.Printf("%s <%s>\n", profile.Username, profile.Email)
	fmt.Printf("  games played: %d  total score: %d\n", profile.TotalGamesPlayed, profile.TotalScore)
	fmt.Printf("  best scores: easy %d / medium %d / hard %d\n",
		profile.BestScoreEasy, profile.BestScoreMedium, profile.BestScoreHard)
	return nil
}

// printListener renders search outcomes; done fires after each delivery.
type printListener struct {
	done chan struct{}
}

func (l *printListener) SearchResults(users []model.UserSummary) {
	if len(users) == 0 {
		fmt.Println("no users found")
	}
	for _, u := range users {
		fmt.Printf("%s  %s <%s>\n", u.ID, u.Username, u.Email)
	}
	l.done <- struct{}{}
}

func (l *printListener) SearchFailed(notice string) {
	fmt.Fprintf(os.Stderr, "search failed: %s\n", notice)
	l.done <- struct{}{}
}

func (c *cli) search(args []string) error {
	query := strings.Join(args, " ")

	listener := &printListener{done: make(chan struct{}, 1)}
	ctrl := search.NewController(c.sessions, search.TimerScheduler{}, c.cfg.SearchDebounce(), listener)
	defer ctrl.Close()

	// A one-shot CLI search is the explicit-submit path; the debounce
	// window only matters for streamed keystrokes.
	ctrl.Submit(query)
	<-listener.done
	return nil
}

func (c *cli) challenge(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: challenge <puzzle-id> <duration-seconds> <opponent-query>")
	}
	duration, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("duration must be a number of seconds: %w", err)
	}

	w, err := challenge.New(c.sessions, c.broker, args[0], duration)
	if err != nil {
		return err
	}

	users, err := c.sessions.Client().ListUsers(ctx, args[2])
	if err != nil {
		c.sessions.HandleError(err)
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("no opponent matches %q", args[2])
	}

	opponent := users[0]
	if err := w.SelectOpponent(opponent); err != nil {
		return err
	}

	fmt.Printf("challenge %s <%s> on puzzle %s for %ds? [y/N] ", opponent.Username, opponent.Email, args[0], duration)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		if err := w.Decline(); err != nil {
			return err
		}
		fmt.Println("challenge cancelled")
		return nil
	}

	record, err := w.Confirm(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("challenge %s created, expires %s\n", record.ID, record.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

func (c *cli) respond(ctx context.Context, args []string) error {
	if len(args) != 2 || (args[1] != "accept" && args[1] != "reject") {
		return fmt.Errorf("usage: respond <challenge-id> accept|reject")
	}

	record, err := c.sessions.Client().RespondChallenge(ctx, args[0], model.ChallengeAction(args[1]))
	if err != nil {
		c.sessions.HandleError(err)
		return err
	}
	fmt.Printf("challenge %s is now %s\n", record.ID, record.Status)
	return nil
}

func (c *cli) leaderboard(ctx context.Context) error {
	data, err := c.sessions.Client().Leaderboard(ctx)
	if err != nil {
		c.sessions.HandleError(err)
		return err
	}

	printBoard := func(name string, entries []model.LeaderboardEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Printf("%s:\n", name)
		for i, e := range entries {
			fmt.Printf("  %2d. %-20s %6d\n", i+1, e.Username, e.Score)
		}
	}

	printBoard("overall", data.Overall)
	printBoard("easy", data.Easy)
	printBoard("medium", data.Medium)
	printBoard("hard", data.Hard)
	return nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
