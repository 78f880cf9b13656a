package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/tracklet/appkit/app"
	"github.com/tracklet/appkit/command"
	"github.com/tracklet/appkit/store"
)

// defaultState is the tree a fresh install starts from. Persisted state
// replaces it on the next boot.
func defaultState() map[string]any {
	return map[string]any{
		"user": map[string]any{
			"preferences": map[string]any{
				"theme": "dark",
			},
		},
		"shows": map[string]any{
			"tracked":  []any{},
			"schedule": map[string]any{},
		},
		"music": map[string]any{
			"playlists": []any{},
		},
	}
}

func main() {
	application, err := app.New(app.Config{DefaultState: defaultState()})
	if err != nil {
		log.Fatal(err)
	}
	if err := application.Boot(); err != nil {
		log.Fatal(err)
	}

	registerMutations(application.Store())
	registerGetters(application.Store())
	registerActions(application.Store())
	if err := registerCommands(application); err != nil {
		log.Fatal(err)
	}

	application.Commands().Use(loggingMiddleware(application.Log()))

	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}

// ── State registrations ──────────────────────────────────────────────────────

func registerMutations(s *store.Store) {
	s.RegisterMutation("setTheme", func(state map[string]any, payload any) {
		user, _ := state["user"].(map[string]any)
		prefs, _ := user["preferences"].(map[string]any)
		prefs["theme"] = payload
	})

	s.RegisterMutation("trackShow", func(state map[string]any, payload any) {
		shows, _ := state["shows"].(map[string]any)
		tracked, _ := shows["tracked"].([]any)
		shows["tracked"] = append(tracked, payload)
	})

	s.RegisterMutation("incrementEpisode", func(state map[string]any, payload any) {
		showID, _ := payload.(string)
		shows, _ := state["shows"].(map[string]any)
		tracked, _ := shows["tracked"].([]any)
		for _, entry := range tracked {
			show, ok := entry.(map[string]any)
			if !ok || show["id"] != showID {
				continue
			}
			watched, _ := show["episodesWatched"].(float64)
			show["episodesWatched"] = watched + 1
			return
		}
	})

	s.RegisterMutation("addPlaylist", func(state map[string]any, payload any) {
		music, _ := state["music"].(map[string]any)
		playlists, _ := music["playlists"].([]any)
		music["playlists"] = append(playlists, payload)
	})
}

func registerGetters(s *store.Store) {
	s.RegisterGetter("trackedShowCount", func(state map[string]any) any {
		shows, _ := state["shows"].(map[string]any)
		tracked, _ := shows["tracked"].([]any)
		return len(tracked)
	})

	s.RegisterGetter("currentTheme", func(state map[string]any) any {
		return walkTheme(state)
	})
}

func walkTheme(state map[string]any) any {
	user, _ := state["user"].(map[string]any)
	prefs, _ := user["preferences"].(map[string]any)
	return prefs["theme"]
}

func registerActions(s *store.Store) {
	// importShows tracks a batch of shows in one action.
	s.RegisterAction("importShows", func(ctx context.Context, actx *store.ActionContext, payload any) (any, error) {
		entries, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("importShows expects a list of shows, got %T", payload)
		}
		for _, entry := range entries {
			if err := actx.Commit("trackShow", entry); err != nil {
				return nil, err
			}
		}
		return len(entries), nil
	})
}

// ── Commands ─────────────────────────────────────────────────────────────────

func registerCommands(application *app.Application) error {
	s := application.Store()
	commands := application.Commands()

	err := commands.Register("progressEpisode",
		func(ctx context.Context, payload any) (any, error) {
			body, _ := payload.(map[string]any)
			showID, _ := body["showId"].(string)
			if err := s.Commit("incrementEpisode", showID); err != nil {
				return nil, err
			}
			return s.Get("trackedShowCount"), nil
		},
		command.WithValidator(func(ctx context.Context, payload any) error {
			body, ok := payload.(map[string]any)
			if !ok {
				return fmt.Errorf("payload must be an object")
			}
			if id, _ := body["showId"].(string); id == "" {
				return fmt.Errorf("showId is required")
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	err = commands.Register("switchTheme",
		func(ctx context.Context, payload any) (any, error) {
			theme, _ := payload.(string)
			if theme == "" {
				theme = "dark"
			}
			if err := s.Commit("setTheme", theme); err != nil {
				return nil, err
			}
			return theme, nil
		},
	)
	if err != nil {
		return err
	}

	return commands.Register("importPlaylist",
		func(ctx context.Context, payload any) (any, error) {
			if err := s.Commit("addPlaylist", payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	)
}

func loggingMiddleware(logger *logrus.Logger) command.Middleware {
	return func(ctx context.Context, commandName string, payload any) (any, error) {
		logger.WithField("command", commandName).Debug("dispatching")
		return payload, nil
	}
}
