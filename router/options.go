package router

import (
	"fmt"
	"log/slog"
	"strings"
)

// ErrorPolicy determines what happens when a handler or producer returns an error while events are being delivered.
type ErrorPolicy int

const (
	// CollectErrors keeps delivering everything that was queued, and returns all errors together once the queue is drained.
	// Use [go.uber.org/multierr.Errors] to split the returned error.
	CollectErrors ErrorPolicy = iota
	// LogErrors logs each error at warn level and keeps going. Nothing is returned to the caller.
	LogErrors
	// AbortOnError returns the first error immediately, dropping any deliveries that were still queued.
	AbortOnError
)

var errorPolicyNames = map[ErrorPolicy]string{
	CollectErrors: "collect",
	LogErrors:     "log",
	AbortOnError:  "abort",
}

func (p ErrorPolicy) String() string {
	if name, ok := errorPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ErrorPolicy(%d)", int(p))
}

func (p ErrorPolicy) MarshalText() ([]byte, error) {
	if _, ok := errorPolicyNames[p]; !ok {
		return nil, fmt.Errorf("%w: unknown error policy %d", ErrInvalidArgument, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts the names "collect", "log", and "abort", ignoring case.
func (p *ErrorPolicy) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for policy, policyName := range errorPolicyNames {
		if name == policyName {
			*p = policy
			return nil
		}
	}
	return fmt.Errorf("%w: unknown error policy '%s'", ErrInvalidArgument, text)
}

// HierarchyPolicy determines which types an event is routed to, in addition to its own type.
type HierarchyPolicy int

const (
	// EmbeddedTypes routes events to handlers of the event's type, and every exported type embedded in it.
	EmbeddedTypes HierarchyPolicy = iota
	// EmbeddedAndInterfaces also routes events to handlers of any subscribed interface type the event implements.
	EmbeddedAndInterfaces
)

var hierarchyPolicyNames = map[HierarchyPolicy]string{
	EmbeddedTypes:         "embedded",
	EmbeddedAndInterfaces: "interfaces",
}

func (p HierarchyPolicy) String() string {
	if name, ok := hierarchyPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("HierarchyPolicy(%d)", int(p))
}

// UnmarshalText accepts the names "embedded" and "interfaces", ignoring case.
func (p *HierarchyPolicy) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for policy, policyName := range hierarchyPolicyNames {
		if name == policyName {
			*p = policy
			return nil
		}
	}
	return fmt.Errorf("%w: unknown hierarchy policy '%s'", ErrInvalidArgument, text)
}

type routerConf struct {
	identifier string
	enforcer   ThreadEnforcer
	finder     HandlerFinder
	errPolicy  ErrorPolicy
	hierarchy  HierarchyPolicy
	logger     *slog.Logger
	observer   Observer
}

// Option configures a [Router] in [New].
type Option func(conf *routerConf) error

// WithIdentifier sets the identifier used in logs, metrics, and passed to the [ThreadEnforcer].
// A random identifier is generated if this isn't used.
func WithIdentifier(identifier string) Option {
	return func(conf *routerConf) error {
		if len(strings.TrimSpace(identifier)) == 0 {
			return fmt.Errorf("%w: empty identifier", ErrInvalidArgument)
		}
		conf.identifier = identifier
		return nil
	}
}

// WithThreadEnforcer sets the [ThreadEnforcer] that is consulted before every Register, Unregister, and Post.
// The default is [AnyGoroutine].
func WithThreadEnforcer(enforcer ThreadEnforcer) Option {
	return func(conf *routerConf) error {
		if enforcer == nil {
			return fmt.Errorf("%w: nil thread enforcer", ErrInvalidArgument)
		}
		conf.enforcer = enforcer
		return nil
	}
}

// WithHandlerFinder replaces the default [MethodFinder].
func WithHandlerFinder(finder HandlerFinder) Option {
	return func(conf *routerConf) error {
		if finder == nil {
			return fmt.Errorf("%w: nil handler finder", ErrInvalidArgument)
		}
		conf.finder = finder
		return nil
	}
}

// WithErrorPolicy sets how handler errors are reported. The default is [CollectErrors].
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(conf *routerConf) error {
		if _, ok := errorPolicyNames[policy]; !ok {
			return fmt.Errorf("%w: unknown error policy %d", ErrInvalidArgument, int(policy))
		}
		conf.errPolicy = policy
		return nil
	}
}

// WithHierarchyPolicy sets which types events are routed to. The default is [EmbeddedTypes].
//
// When [EmbeddedAndInterfaces] is used without [WithHandlerFinder], the default [MethodFinder] will also accept interface event types.
func WithHierarchyPolicy(policy HierarchyPolicy) Option {
	return func(conf *routerConf) error {
		if _, ok := hierarchyPolicyNames[policy]; !ok {
			return fmt.Errorf("%w: unknown hierarchy policy %d", ErrInvalidArgument, int(policy))
		}
		conf.hierarchy = policy
		return nil
	}
}

// WithLogger sets the logger for the [Router]. The default is [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(conf *routerConf) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidArgument)
		}
		conf.logger = logger
		return nil
	}
}

// WithObserver attaches an [Observer] that is notified of routing activity.
func WithObserver(observer Observer) Option {
	return func(conf *routerConf) error {
		if observer == nil {
			return fmt.Errorf("%w: nil observer", ErrInvalidArgument)
		}
		conf.observer = observer
		return nil
	}
}
