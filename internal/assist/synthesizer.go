package assist

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/charanaquarium/chat-backend/internal/domain"
)

// FallbackReply is returned whenever no backend model can produce an answer.
// The wording is part of the product surface; do not edit casually.
const FallbackReply = "Xin lỗi, dịch vụ AI tạm thời không khả dụng. Vui lòng liên hệ admin để được hỗ trợ."

// DefaultModels is the backend preference order tried when nothing is cached.
// Each entry costs one API request, so the list is short on purpose.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-flash-latest"}

// Synthesis defaults.
const (
	DefaultAttemptTimeout = 10 * time.Second
	DefaultContextWindow  = 5
)

// personaPreamble primes the backend with the store persona. Gemini has no
// system role, so it is sent as the opening user turn followed by a canned
// model acknowledgement.
const personaPreamble = `Bạn là trợ lý AI chuyên nghiệp và thân thiện của cửa hàng cá cảnh Charan Aquarium.
Bạn giúp khách hàng tư vấn chi tiết về:
- Các loại cá cảnh (Freshwater, Marine, Exotic)
- Phụ kiện hồ cá (Tanks, Accessories)
- Thức ăn cho cá (Food)
- Cách chăm sóc cá cảnh

Hãy trả lời NGẮN GỌN, SÚC TÍCH, và HỮU ÍCH bằng tiếng Việt. Trả lời từ 50-100 từ, tập trung vào thông tin quan trọng nhất. Tránh lặp lại, không dài dòng.
- Nếu khách hỏi về loại cá: Mô tả ngắn gọn đặc điểm nổi bật, cách nuôi cơ bản, thức ăn, lưu ý quan trọng.
- Nếu khách hỏi về phụ kiện: Giải thích ngắn gọn công dụng chính, cách sử dụng, lợi ích.
- Nếu khách hỏi về chăm sóc: Hướng dẫn ngắn gọn các bước cơ bản, lưu ý quan trọng.
- Luôn trả lời trực tiếp câu hỏi, không lan man. Nếu cần thông tin chi tiết hơn, đề xuất khách xem Shop hoặc liên hệ admin.

Nếu khách hàng hỏi về sản phẩm cụ thể, hãy đề xuất họ xem trong Shop hoặc liên hệ admin để được tư vấn chi tiết hơn về giá và đặt hàng.

QUAN TRỌNG: Nếu khách hàng không hài lòng, có vấn đề phức tạp, hoặc yêu cầu được nói chuyện với admin thực sự, hãy đề xuất họ gõ 'admin' hoặc 'người thật' để được chuyển sang admin thực sự. Luôn lịch sự và hữu ích.`

const personaAck = "Tôi hiểu. Tôi sẽ giúp khách hàng với thông tin về cá cảnh và sản phẩm của Charan Aquarium."

// rolePrefixRE strips assistant self-labels some models prepend to replies.
var rolePrefixRE = regexp.MustCompile(`(?i)^(AI Assistant|Trợ lý AI):\s*`)

// Synthesizer produces automated replies. It tries the cached last-working
// model first, then walks the preference list, and falls back to a fixed
// apology when every attempt fails.
type Synthesizer struct {
	Backend Generator
	Cache   ModelCache

	// Models overrides DefaultModels when non-empty.
	Models []string

	// Config overrides DefaultGenerationConfig when non-zero.
	Config GenerationConfig

	// AttemptTimeout bounds each backend attempt; defaults to
	// DefaultAttemptTimeout.
	AttemptTimeout time.Duration

	// ContextWindow bounds how many history messages are sent; defaults to
	// DefaultContextWindow.
	ContextWindow int
}

// Reply synthesizes an answer to body given the conversation history.
// History may arrive in any order and may exceed the context window; only
// the most recent entries are sent, oldest first. Reply never fails: when
// all models are exhausted it returns FallbackReply.
func (s *Synthesizer) Reply(ctx context.Context, body string, history []domain.Message) string {
	if s.Backend == nil {
		return FallbackReply
	}

	turns := s.buildContext(body, history)
	cfg := s.Config
	if cfg == (GenerationConfig{}) {
		cfg = DefaultGenerationConfig()
	}
	timeout := s.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}

	candidates := s.Models
	if len(candidates) == 0 {
		candidates = DefaultModels
	}
	if s.Cache != nil {
		if cached := s.Cache.Get(); cached != "" {
			// One request instead of a full walk while the cached model works.
			candidates = []string{cached}
		}
	}

	var lastErr error
	for _, model := range candidates {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := s.Backend.Generate(attemptCtx, model, turns, cfg)
		cancel()
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("model", model).Msg("reply synthesis attempt failed")
			continue
		}
		if s.Cache != nil {
			s.Cache.Set(model)
		}
		return rolePrefixRE.ReplaceAllString(strings.TrimSpace(text), "")
	}

	log.Warn().Err(lastErr).Msg("all reply synthesis models failed; returning fallback")
	return FallbackReply
}

// buildContext assembles the backend turns: persona priming, the tail of the
// conversation history in chronological order, then the current message.
func (s *Synthesizer) buildContext(body string, history []domain.Message) []Turn {
	window := s.ContextWindow
	if window <= 0 {
		window = DefaultContextWindow
	}

	ordered := make([]domain.Message, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	if len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	turns := make([]Turn, 0, len(ordered)+3)
	turns = append(turns,
		Turn{Role: TurnUser, Text: personaPreamble},
		Turn{Role: TurnModel, Text: personaAck},
	)
	for _, m := range ordered {
		role := TurnUser
		if m.Automated {
			role = TurnModel
		}
		turns = append(turns, Turn{Role: role, Text: m.Body})
	}
	return append(turns, Turn{Role: TurnUser, Text: body})
}
