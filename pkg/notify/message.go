package notify

import (
	"fmt"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/strands-sre/strands/pkg/models"
)

const maxBlockTextLength = 2900

var riskEmoji = map[models.RiskLevel]string{
	models.RiskMinimal:  ":white_circle:",
	models.RiskLow:      ":large_blue_circle:",
	models.RiskMedium:   ":large_yellow_circle:",
	models.RiskHigh:     ":large_orange_circle:",
	models.RiskCritical: ":red_circle:",
}

var decisionLabel = map[models.DecisionType]string{
	models.DecisionEscalate:         "Escalated",
	models.DecisionAutoApprove:      "Auto-approved",
	models.DecisionRequiresApproval: "Awaiting review",
}

func clusterURL(clusterID, dashboardURL string) string {
	return fmt.Sprintf("%s/clusters/%s", dashboardURL, clusterID)
}

// BuildPendingReviewMessage renders the Block Kit body for a decision that
// just entered PENDING review. The cluster ID is embedded as
// plain text so FindMessageByFingerprint can later relocate this message's
// thread from the cluster fingerprint alone.
func BuildPendingReviewMessage(decision models.DecisionCandidate, dashboardURL string) []goslack.Block {
	emoji := riskEmoji[decision.Risk]
	if emoji == "" {
		emoji = ":question:"
	}
	label := decisionLabel[decision.DecisionType]
	if label == "" {
		label = string(decision.DecisionType)
	}

	header := fmt.Sprintf("%s *%s* — risk `%s`, automation `%s`", emoji, label, decision.Risk, decision.Automation)
	body := fmt.Sprintf("*Hypothesis:* %s\n*Confidence:* %.2f\n*Cluster:* `%s`", decision.Hypothesis, decision.Confidence, decision.ClusterID)
	if len(decision.SuggestedActions) > 0 {
		body += "\n*Suggested actions:*\n" + strings.Join(bulletize(decision.SuggestedActions), "\n")
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, header, false, false), nil, nil),
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(body), false, false), nil, nil),
	}

	url := clusterURL(decision.ClusterID, dashboardURL)
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "Review decision", false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))
	return blocks
}

// BuildReviewResolvedMessage renders the terminal state a review settled
// into, posted as a threaded reply to the original pending-review message.
func BuildReviewResolvedMessage(record models.ReviewRecord) []goslack.Block {
	var headerText string
	switch record.State {
	case models.ReviewApproved:
		headerText = fmt.Sprintf(":white_check_mark: *Approved* by %s", record.Reviewer)
	case models.ReviewRejected:
		headerText = fmt.Sprintf(":x: *Rejected* by %s", record.Reviewer)
	default:
		headerText = fmt.Sprintf("*%s* by %s", record.State, record.Reviewer)
	}
	if record.Notes != "" {
		headerText += fmt.Sprintf("\n\n*Notes:*\n%s", truncateForSlack(record.Notes))
	}
	return []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false), nil, nil),
	}
}

func bulletize(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = "• " + it
	}
	return out
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated)_"
}
