// Package notify provides the default Notifier and RecipientResolver
// wired by the daemon.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log. It stands in
// for a real delivery channel; every send succeeds.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send implements model.Notifier.
func (n *LogNotifier) Send(_ context.Context, recipients []string, title, body, channel string) error {
	n.logger.Info("notification",
		zap.Strings("recipients", recipients),
		zap.String("title", title),
		zap.String("body", body),
		zap.String("channel", channel))
	return nil
}

// StaticResolver expands role group names into fixed recipient lists. A
// name that is not a known group resolves to itself, so steps can
// address individual user IDs directly.
type StaticResolver struct {
	groups map[string][]string
}

// NewStaticResolver creates a resolver with the default role groups.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{groups: map[string][]string{
		"maintenance_team": {"maintenance_team"},
		"security_team":    {"security_team"},
		"admin_users":      {"admin_users"},
		"all_residents":    {"all_residents"},
	}}
}

// SetGroup replaces the members of a role group.
func (r *StaticResolver) SetGroup(name string, members []string) {
	r.groups[name] = append([]string(nil), members...)
}

// Resolve implements model.RecipientResolver.
func (r *StaticResolver) Resolve(_ context.Context, roleOrID string) ([]string, error) {
	if members, ok := r.groups[roleOrID]; ok {
		return append([]string(nil), members...), nil
	}
	return []string{roleOrID}, nil
}
