package codemodel

import (
	"strings"

	"github.com/morozRed/swampmonster/internal/model"
	"github.com/morozRed/swampmonster/internal/parser"
)

// Prism event aggregator definitions, rendered the way the compiler prints
// an unbound generic method definition.
const (
	PrismNamespace = "Prism.Events"

	PublishDefinition     = "Prism.Events.PubSubEvent<TPayload>.Publish(TPayload)"
	SubscribeDefinition   = "Prism.Events.PubSubEvent<TPayload>.Subscribe(System.Action<TPayload>)"
	UnsubscribeDefinition = "Prism.Events.PubSubEvent<TPayload>.Unsubscribe(System.Action<TPayload>)"

	pubSubEventType = "PubSubEvent"
)

var aggregatorTypes = []string{"IEventAggregator", "EventAggregator"}

// subscribeParameters lists the Subscribe overload parameters by arity.
var subscribeParameters = []string{
	"System.Action<TPayload>",
	"Prism.Events.ThreadOption",
	"bool",
	"System.Predicate<TPayload>",
}

// resolveCall resolves the Prism aggregator calls of a file. It returns the
// method and the event type it operates on, or nil when unresolved.
func (w *Workspace) resolveCall(file int, call parser.CallSite, depth int) (*Method, string) {
	if depth > maxResolveDepth || !w.prismVisible(file) {
		return nil, ""
	}

	switch call.Method {
	case "GetEvent":
		if len(call.TypeArgs) != 1 || call.ArgCount != 0 {
			return nil, ""
		}
		recvType := w.typeOf(file, call.Receiver, call.Enclosing, depth+1)
		aggregator := w.aggregatorType(recvType)
		if aggregator == "" {
			return nil, ""
		}
		eventType := model.BaseTypeName(call.TypeArgs[0])
		return &Method{
			Name:         call.Method,
			Definition:   PrismNamespace + "." + aggregator + ".GetEvent<TEventType>()",
			ReturnType:   eventType,
			TypeArgument: call.TypeArgs[0],
		}, eventType

	case "Publish", "Subscribe", "Unsubscribe":
		eventType, ok := w.pubSubReceiver(file, call, depth+1)
		if !ok {
			return nil, ""
		}
		return &Method{
			Name:       call.Method,
			Definition: pubSubDefinition(call.Method, call.ArgCount),
		}, eventType
	}

	return nil, ""
}

// pubSubReceiver reports whether the call receiver is a PubSubEvent, and
// which event type it is when known.
func (w *Workspace) pubSubReceiver(file int, call parser.CallSite, depth int) (string, bool) {
	if call.Receiver.Kind == parser.ExprCall && call.Receiver.Call != nil {
		method, eventType := w.resolveCall(file, *call.Receiver.Call, depth)
		if method != nil && method.Name == "GetEvent" {
			return eventType, true
		}
		return "", false
	}

	recvType := w.typeOf(file, call.Receiver, call.Enclosing, depth)
	if recvType == "" {
		return "", false
	}
	if recvType == pubSubEventType || w.eventTypes[recvType] || w.derivesFrom(recvType, pubSubEventType, 0) {
		return recvType, true
	}
	return "", false
}

func (w *Workspace) aggregatorType(typeName string) string {
	for _, candidate := range aggregatorTypes {
		if w.derivesFrom(typeName, candidate, 0) {
			return candidate
		}
	}
	return ""
}

// prismVisible reports whether the file imports Prism.Events or spells a
// Prism type fully qualified.
func (w *Workspace) prismVisible(file int) bool {
	fm := &w.files[file]
	for _, using := range fm.Usings {
		if using == PrismNamespace {
			return true
		}
	}
	for _, b := range fm.Bindings {
		if strings.HasPrefix(b.TypeName, PrismNamespace+".") {
			return true
		}
	}
	return false
}

func pubSubDefinition(method string, argCount int) string {
	prefix := PrismNamespace + ".PubSubEvent<TPayload>."
	switch method {
	case "Publish":
		if argCount == 0 {
			return PrismNamespace + ".PubSubEvent.Publish()"
		}
		return PublishDefinition
	case "Subscribe":
		if argCount <= 1 {
			return SubscribeDefinition
		}
		if argCount > len(subscribeParameters) {
			argCount = len(subscribeParameters)
		}
		return prefix + "Subscribe(" + strings.Join(subscribeParameters[:argCount], ", ") + ")"
	default:
		return UnsubscribeDefinition
	}
}
