package tvilling

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"google.golang.org/genai"
)

// MaxTags is the most keywords AutoTag returns.
const MaxTags = 5

var tagPrompt = "generate 1-5 comma-separated one-word tags for this wildlife survey photo. " +
	"Tags should be a present-tense singular word that a field biologist would want to " +
	"organize their photos with. If you know the animal genus, add the genus as a tag. " +
	"Use night for infrared or night-time photos, and bw for black and white photos. " +
	"Use empty for photos without an animal. Do not combine multiple words. " +
	"do not use plural words. use rock instead of rocks."

// AutoTag asks model for keywords describing a JPEG image.
func AutoTag(ctx context.Context, client *genai.Client, model string, jpeg []byte) ([]string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(jpeg, "image/jpeg"),
		genai.NewPartFromText(tagPrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return parseTags(p.Text), nil
			}
		}
	}
	return nil, fmt.Errorf("no tags in response")
}

// parseTags splits a comma-separated answer into at most MaxTags unique lowercase words.
func parseTags(s string) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, f := range strings.Split(s, ",") {
		t := strings.ToLower(strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		t = strings.ReplaceAll(t, " ", "")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}
