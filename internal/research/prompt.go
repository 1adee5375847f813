package research

import (
	"fmt"
	"strings"
)

const citationRule = "IMPORTANT: For EVERY claim or finding, you MUST include the actual tweet URL in the format https://x.com/username/status/ID. Do not fabricate URLs. Every single point must have a real citation link."

const formatRule = "Format your response as clean HTML. Use <h2>, <h3>, <p>, <ul>, <li>, <a> tags. Make tweet links clickable with target='_blank'. Style tweet citations as blockquotes with the tweet URL linked."

// buildPrompt renders the mode-specific prompt and the tool set the model
// may use. Unknown modes are an error.
func buildPrompt(params Params) (string, []map[string]any, error) {
	tools := []map[string]any{
		{"type": "x_search"},
		{"type": "web_search"},
	}

	switch params.Mode {
	case ModeSearch:
		prompt := fmt.Sprintf(`Search X/Twitter for the most notable, viral, or insightful tweets about: %q

Find 10-15 tweets. For each tweet include:
- The tweet text
- Author handle
- A direct link to the tweet
- Why it's notable (engagement, insight, controversy, etc.)

%s
%s

Wrap the entire response in a <div>. Start with an <h2> summarizing what was found.`, params.Query, citationRule, formatRule)
		return prompt, tools, nil

	case ModeTopic:
		prompt := fmt.Sprintf(`Analyze the debate on X/Twitter about: %q

Side A: %q
Side B: %q

Search for tweets representing both sides. Find at least 5-8 tweets per side. For each tweet:
- Classify it as Side A or Side B
- Include the full tweet text
- Link to the actual tweet

Then provide:
- A tally: how many tweets found for each side
- A sentiment summary for each side
- Notable patterns or key voices

%s
%s

Structure the HTML with:
- <h2> for the topic
- A summary section with tallies styled as a scoreboard
- <h3> for each side with its tweets as blockquotes
- A <h3> "Analysis" section at the end`, params.Query, params.Side1, params.Side2, citationRule, formatRule)
		return prompt, tools, nil

	case ModeAccount:
		var topicLines []string
		for _, t := range strings.Split(params.Topics, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				topicLines = append(topicLines, "- "+t)
			}
		}
		prompt := fmt.Sprintf(`Analyze the X/Twitter account @%s and their positions on the following topics:
%s

For each topic:
1. Determine their stance/position based on their tweets
2. Provide 2-4 evidence tweets with direct links
3. Rate their engagement level (casual mention vs. passionate advocate)

%s
%s

Structure as:
- <h2> with the account name
- <h3> for each topic with stance summary and evidence tweets as blockquotes
- <h3> "Overall Profile" summary at the end`, params.Handle, strings.Join(topicLines, "\n"), citationRule, formatRule)
		return prompt, tools, nil

	case ModeAsk:
		prompt := fmt.Sprintf(`Answer this question about @%s on X/Twitter: %q

Search their tweets and provide a thorough, well-cited answer. Include specific tweets as evidence.

%s
%s

Structure as a <div> with <h2> for the question, detailed answer paragraphs, and tweet citations as blockquotes.`, params.Handle, params.Question, citationRule, formatRule)
		return prompt, tools, nil

	default:
		return "", nil, fmt.Errorf("invalid mode %q", params.Mode)
	}
}
