package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result
// to path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to formrelay! Let's connect your Slack workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Credentials.
	token, err := (&promptui.Prompt{
		Label:    "Slack bot token (xoxb-...)",
		Mask:     '*',
		Validate: requireNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("bot token: %w", err)
	}
	cfg.Slack.BotToken = token

	secret, err := (&promptui.Prompt{
		Label: "Slack signing secret (blank disables event verification)",
		Mask:  '*',
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("signing secret: %w", err)
	}
	cfg.Slack.SigningSecret = secret

	// 2. Channels.
	approval, err := (&promptui.Prompt{
		Label:    "Channel for incoming form submissions",
		Default:  cfg.Channels.Approval,
		Validate: requireNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("approval channel: %w", err)
	}
	cfg.Channels.Approval = approval

	decision, err := (&promptui.Prompt{
		Label:    "Channel for accept/reject decisions",
		Default:  cfg.Channels.Decision,
		Validate: requireNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("decision channel: %w", err)
	}
	cfg.Channels.Decision = decision

	// 3. Button targets.
	acceptURL, err := (&promptui.Prompt{
		Label:    "Accept button URL",
		Validate: checkHTTPURL,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("accept url: %w", err)
	}
	cfg.Callbacks.AcceptURL = acceptURL

	rejectURL, err := (&promptui.Prompt{
		Label:    "Reject button URL",
		Validate: checkHTTPURL,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("reject url: %w", err)
	}
	cfg.Callbacks.RejectURL = rejectURL

	// 4. Event transport.
	_, mode, err := (&promptui.Select{
		Label: "How should Slack deliver events",
		Items: []string{string(EventsHTTP), string(EventsSocket)},
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("events mode: %w", err)
	}
	cfg.Events.Mode = EventsMode(mode)

	if cfg.Events.Mode == EventsSocket {
		appToken, err := (&promptui.Prompt{
			Label: "Slack app-level token (xapp-...)",
			Mask:  '*',
			Validate: func(s string) error {
				if !strings.HasPrefix(s, "xapp-") {
					return errors.New("app token must start with xapp-")
				}
				return nil
			},
		}).Run()
		if err != nil {
			return nil, fmt.Errorf("app token: %w", err)
		}
		cfg.Slack.AppToken = appToken
	}

	// 5. Mirror scope.
	mirrorStr, err := (&promptui.Prompt{
		Label:   "Mirror only these channel ids (comma-separated globs, blank for all)",
		Default: "",
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("mirror channels: %w", err)
	}
	cfg.Mirror.Channels = splitAndTrim(mirrorStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value is required")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
