package domain

// SubscriptionStatus is the outcome of a single membership check. A check
// that cannot be completed reports NotSubscribed; uncertainty never unlocks
// content.
type SubscriptionStatus int

const (
	// NotSubscribed means the user left the channel or membership could not
	// be proven.
	NotSubscribed SubscriptionStatus = iota
	// Subscribed means the platform reported any present status.
	Subscribed
)

// String implements fmt.Stringer for log fields.
func (s SubscriptionStatus) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "not_subscribed"
}

// GateOutcome enumerates the possible results of a content request.
type GateOutcome int

const (
	// GateDelivered releases the content item.
	GateDelivered GateOutcome = iota
	// GatePromptSubscribe defers delivery until the user joins the listed
	// channels and retries.
	GatePromptSubscribe
	// GateNotFound means the requested item does not exist.
	GateNotFound
)

// GateResult carries the outcome of a content request. For
// GatePromptSubscribe, Requirements holds the full current channel listing
// in registry order so the prompt can render every join button, and
// RetryItemID carries the item to re-request after subscribing.
type GateResult struct {
	Outcome      GateOutcome
	Item         ContentItem
	Requirements []ChannelRequirement
	RetryItemID  int64
}
