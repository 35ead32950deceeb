// Package assist implements the automated-reply core of the chat service:
// the routing decision engine that chooses between automated and human
// handling for each incoming customer message, and the reply synthesizer
// that produces automated answers through the generative backend.
//
// Design notes:
//   - No persistence lives here; history is read through a narrow interface
//     and replies are handed back to the caller for storage.
//   - Matching is deliberately literal: lowercase (Unicode case-folded)
//     substring search over fixed keyword lists, mixed Vietnamese/English,
//     with no diacritic folding. "admin" inside a longer word still counts.
//   - The routing mode is never stored; it is recomputed from history on
//     every message, so it self-heals from stale or missing state.
package assist

import (
	"strings"

	"golang.org/x/text/cases"
)

// escalationKeywords signal that the customer wants a human: explicit
// requests for an admin, a manager, or a real person, plus dissatisfaction
// and complaint terms.
var escalationKeywords = []string{
	"admin", "quản lý", "manager", "người thật", "human", "real person",
	"real admin", "admin thật", "nói chuyện với admin", "liên hệ admin",
	"gặp admin", "admin giúp", "cần admin", "muốn admin", "yêu cầu admin",
	"chuyển admin", "chuyển sang admin", "không hài lòng", "không thỏa mãn",
	"phàn nàn", "khiếu nại", "complaint", "dissatisfied", "unsatisfied",
}

// returnKeywords signal that the customer wants automated handling back.
// A match here always wins over any prior escalation.
var returnKeywords = []string{
	"ai", "bot", "tư vấn tự động", "tư vấn ai", "quay lại ai", "dùng ai",
	"ai giúp", "bot giúp", "tự động", "auto", "chatbot", "trợ lý ai",
	"ai tư vấn", "bot tư vấn", "tư vấn bot", "quay lại bot",
}

// normalize lowercases text for matching using full Unicode case folding,
// so Vietnamese upper-case letters fold correctly. Diacritics are preserved.
func normalize(s string) string {
	return cases.Fold().String(s)
}

// matchesAny reports whether the already-normalized text contains any of the
// given keywords as a substring.
func matchesAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// wantsHuman reports whether raw text contains an escalation keyword.
func wantsHuman(text string) bool {
	return matchesAny(normalize(text), escalationKeywords)
}

// wantsAutomation reports whether raw text contains a return-to-automation
// keyword.
func wantsAutomation(text string) bool {
	return matchesAny(normalize(text), returnKeywords)
}
