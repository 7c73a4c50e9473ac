// Package intent classifies inbound support messages into coarse categories
// used by the response dispatcher. Classification is rule-based: an ordered
// list of checks where the first hit wins, falling through to a default
// general-support category. It is deterministic, side-effect-free, and never
// returns an error.
package intent

import (
	"regexp"
	"strings"
)

// Category is the coarse intent a message is classified into.
type Category string

const (
	Greeting       Category = "greeting"
	OrderInquiry   Category = "order_inquiry"
	AccountInfo    Category = "account_info"
	GeneralSupport Category = "general_support"
)

// Account-info subtypes.
const (
	SubtypeRecentOrders = "recent_orders"
	SubtypeAddresses    = "addresses"
	SubtypeGeneral      = "general"
)

// Result is the transient classification outcome for one message. It is
// recomputed per message and never persisted.
type Result struct {
	Category    Category
	OrderNumber string
	InfoSubtype string
	Confidence  float64
}

var (
	greetingRE = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good morning|good afternoon|good evening)\b`)

	// Order numbers: two uppercase letters followed by 6+ digits, or a bare
	// run of 8+ digits. The first match is taken verbatim; validation against
	// real orders happens downstream.
	orderNumberRE = regexp.MustCompile(`[A-Z]{2}[0-9]{6,}|[0-9]{8,}`)

	recentOrdersRE = regexp.MustCompile(`\b(orders|my orders|recent orders)\b`)
	addressesRE    = regexp.MustCompile(`\b(address|addresses)\b`)

	// Keyword rules use word boundaries so that "orders" reaches the
	// account rule instead of always tripping the singular "order" here.
	orderKeywordRE   = regexp.MustCompile(`\b(order|track|tracking|shipped|delivery|package)\b`)
	accountKeywordRE = regexp.MustCompile(`\b(account|profile|address|addresses|orders)\b`)
)

// Classify maps a message to an intent Result. Rules are evaluated in order
// and the first match wins:
//
//  1. greeting prefix            -> Greeting, confidence 0.9
//  2. order-related keyword      -> OrderInquiry, confidence 0.8 (+ order number, if present)
//  3. account-related keyword    -> AccountInfo, confidence 0.8 (+ subtype)
//  4. default                    -> GeneralSupport, confidence 0.6
//
// For AccountInfo the recent-orders subtype check runs before the addresses
// check, so a message matching both keyword sets classifies as addresses.
func Classify(message string) Result {
	lower := strings.ToLower(message)

	if greetingRE.MatchString(message) {
		return Result{Category: Greeting, Confidence: 0.9}
	}

	if orderKeywordRE.MatchString(lower) {
		return Result{
			Category:    OrderInquiry,
			OrderNumber: orderNumberRE.FindString(message),
			Confidence:  0.8,
		}
	}

	if accountKeywordRE.MatchString(lower) {
		subtype := SubtypeGeneral
		if recentOrdersRE.MatchString(lower) {
			subtype = SubtypeRecentOrders
		}
		if addressesRE.MatchString(lower) {
			subtype = SubtypeAddresses
		}
		return Result{Category: AccountInfo, InfoSubtype: subtype, Confidence: 0.8}
	}

	return Result{Category: GeneralSupport, Confidence: 0.6}
}
