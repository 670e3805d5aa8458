package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	oauthcommand "github.com/goliatone/go-oauth/command"
	"github.com/goliatone/go-oauth/core"
	oauthquery "github.com/goliatone/go-oauth/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	// go-command keys queries and commands in the same registry.
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeCommandFunc[T any](handler command.CommandFunc[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func SubscribeQueryFunc[T any, R any](qry command.QueryFunc[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Subscriptions groups dispatcher subscriptions so they can be released
// together.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterService registers every oauth command and query backed by svc and
// subscribes them on the dispatcher. On failure the subscriptions made so far
// are released.
func RegisterService(adapter *RegistryAdapter, svc *core.Service, runnerOpts ...runner.Option) (Subscriptions, error) {
	if svc == nil {
		return nil, fmt.Errorf("gocommand: oauth service is required")
	}
	var subs Subscriptions
	add := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			subs.Unsubscribe()
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	steps := []func() error{
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.RegisterApplicationMessage](adapter, oauthcommand.NewRegisterApplicationCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.DeleteApplicationMessage](adapter, oauthcommand.NewDeleteApplicationCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.CreateGrantMessage](adapter, oauthcommand.NewCreateGrantCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.ExchangeGrantMessage](adapter, oauthcommand.NewExchangeGrantCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.IssueTokensMessage](adapter, oauthcommand.NewIssueTokensCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.RefreshTokensMessage](adapter, oauthcommand.NewRefreshTokensCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.RevokeAccessTokenMessage](adapter, oauthcommand.NewRevokeAccessTokenCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.RevokeRefreshTokenMessage](adapter, oauthcommand.NewRevokeRefreshTokenCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.RevokeIDTokenMessage](adapter, oauthcommand.NewRevokeIDTokenCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribe[oauthcommand.ClearExpiredMessage](adapter, oauthcommand.NewClearExpiredCommand(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribeQuery[oauthquery.GetApplicationMessage, core.Application](adapter, oauthquery.NewGetApplicationQuery(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribeQuery[oauthquery.ValidateAccessTokenMessage, core.TokenValidation](adapter, oauthquery.NewValidateAccessTokenQuery(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribeQuery[oauthquery.IDTokenClaimsMessage, core.Claims](adapter, oauthquery.NewIDTokenClaimsQuery(svc), runnerOpts...))
		},
		func() error {
			return add(RegisterAndSubscribeQuery[oauthquery.DescribeScopesMessage, map[string]string](adapter, oauthquery.NewDescribeScopesQuery(svc), runnerOpts...))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return subs, nil
}
