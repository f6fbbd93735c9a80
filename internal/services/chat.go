package services

import (
	"context"
	"strings"

	"github.com/SigNoz/skincare-shop/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
)

type chatRule struct {
	topic    string
	keywords []string
	answer   string
}

// chatRules are tried in order; the first rule with a keyword contained in the
// lowercased question wins
var chatRules = []chatRule{
	{
		topic:    "acne",
		keywords: []string{"jerawat", "acne", "beruntusan"},
		answer:   "Untuk masalah jerawat, gunakan pembersih lembut, toner BHA, dan pelembap non-comedogenic. Tambahkan serum dengan niacinamide.",
	},
	{
		topic:    "dull",
		keywords: []string{"kusam", "dull", "pencerah"},
		answer:   "Kulit kusam? Coba exfoliasi AHA 2-3x/minggu dan serum vitamin C pagi hari, selalu gunakan sunscreen.",
	},
	{
		topic:    "dry",
		keywords: []string{"kering", "dry", "dehidrasi"},
		answer:   "Kulit kering? Gunakan cleanser lembut, hydrating toner, serum hyaluronic acid, dan pelembap occlusive.",
	},
	{
		topic:    "oily",
		keywords: []string{"berminyak", "oily", "minyak"},
		answer:   "Kulit berminyak? Pilih gel moisturizer, hindari cleanser terlalu keras, dan gunakan niacinamide + zinc.",
	},
}

const (
	fallbackTopic  = "default"
	fallbackAnswer = "Ceritakan masalah kulit Anda (jerawat, kusam, kering, berminyak) dan saya akan bantu rekomendasi rutinitas."
)

// ChatService answers skincare questions from a fixed rule table
type ChatService struct {
	metrics *metrics.AppMetrics
}

// NewChatService creates a new chat service
func NewChatService(metrics *metrics.AppMetrics) *ChatService {
	return &ChatService{metrics: metrics}
}

// Answer returns the answer of the first matching rule, or the fallback prompt
func (s *ChatService) Answer(ctx context.Context, question string) string {
	topic, answer := matchRule(question)
	s.metrics.ChatAnswers.Add(ctx, 1, s.metrics.Attrs(attribute.String("chat.topic", topic)))
	return answer
}

func matchRule(question string) (topic, answer string) {
	q := strings.ToLower(question)
	for _, r := range chatRules {
		for _, k := range r.keywords {
			if strings.Contains(q, k) {
				return r.topic, r.answer
			}
		}
	}
	return fallbackTopic, fallbackAnswer
}
