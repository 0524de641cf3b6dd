package transform

import "strings"

// stylePrompts maps each supported style to the edit instruction sent to the
// provider. The style set is expected to grow; unknown identifiers fall back
// to the generic instruction instead of failing.
var stylePrompts = map[string]string{
	"ecommerce":  "Transform into a professional e-commerce style photo with clean white background, perfect studio lighting, and clear focus on all product details.",
	"lifestyle":  "Transform into a lifestyle context showing the product in use in a natural environment. Add soft, ambient lighting and organic elements.",
	"minimalist": "Transform into a minimalist photo with a simple, gradient background, elegant composition, and subtle shadows.",
	"artistic":   "Transform into an artistic, editorial-style photo with dramatic lighting, creative composition, and bold visual elements.",
	"social":     "Transform into a social media ready product photo with vibrant colors, interesting perspectives, and eye-catching presentation.",
	"luxury":     "Transform into a luxury, high-end product photo with premium materials, sophisticated lighting, marble or velvet textures, and an exclusive, upscale aesthetic.",
	"vintage":    "Transform into a vintage-style photo with retro color grading, nostalgic film grain, classic composition, and timeless aesthetic reminiscent of 1970s-1980s photography.",
	"neon":       "Transform into a futuristic neon-style photo with vibrant electric colors, glowing neon lighting effects, cyberpunk aesthetic, and dramatic contrast against dark backgrounds.",
}

const defaultPrompt = "Transform into a professional, high-quality commercial image with perfect lighting and composition."

// StylePrompt returns the edit instruction for a style identifier.
func StylePrompt(style string) string {
	if prompt, ok := stylePrompts[strings.ToLower(strings.TrimSpace(style))]; ok {
		return prompt
	}
	return defaultPrompt
}

// DefaultQuality is used when the request omits or misspells the quality tier.
const DefaultQuality = "medium"

// NormalizeQuality collapses the quality identifier onto a known tier.
func NormalizeQuality(quality string) string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "low":
		return "low"
	case "high":
		return "high"
	case "medium":
		return "medium"
	default:
		return DefaultQuality
	}
}

// QualitySize maps a quality tier to the resolution the image is prepared at.
func QualitySize(quality string) int {
	switch NormalizeQuality(quality) {
	case "low":
		return 512
	case "high":
		return 1024
	default:
		return 768
	}
}
