// Package history rebuilds a conversation transcript for a submitted
// survey, so a returning user sees the campaign summary and its current
// outcome instead of an empty screen.
package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leadpilot/leadpilot/internal/status"
	"github.com/leadpilot/leadpilot/internal/survey"
	"github.com/leadpilot/leadpilot/internal/wizard"
)

// Reconciler renders transcripts from stored surveys. It holds the step
// configuration only to recover field order and option labels.
type Reconciler struct {
	steps []wizard.Step
}

func NewReconciler(steps []wizard.Step) *Reconciler {
	return &Reconciler{steps: steps}
}

// Rebuild derives the transcript for a submitted survey. It is a pure
// function of its inputs: message IDs are derived from the survey ID and
// position, so rebuilding the same survey twice yields identical output.
func (r *Reconciler) Rebuild(sv *survey.Survey, st *status.ProcessingStatus) []wizard.Message {
	msgs := []wizard.Message{
		r.message(sv.ID, 0, "Welcome back! Here is the campaign you submitted."),
		r.message(sv.ID, 1, r.synopsis(sv)),
	}

	switch {
	case st != nil && st.Complete:
		msgs = append(msgs, r.message(sv.ID, 2,
			fmt.Sprintf("Your campaign finished: %d of %d contacts processed. The results are ready to export.", st.Processed, st.Total)))
	case st != nil && st.Total > 0:
		msgs = append(msgs, r.message(sv.ID, 2,
			fmt.Sprintf("Your campaign is still running: %d of %d contacts processed so far.", st.Processed, st.Total)))
	default:
		msgs = append(msgs, r.message(sv.ID, 2,
			"Your campaign was submitted. Check the status to see how processing is going."))
	}
	return msgs
}

func (r *Reconciler) message(surveyID string, seq int, content string) wizard.Message {
	return wizard.Message{
		ID:      fmt.Sprintf("%s-history-%d", surveyID, seq),
		Author:  wizard.AuthorSystem,
		Content: content,
	}
}

// synopsis renders the stored campaign parameters in step order, using
// option labels where the step configuration has them.
func (r *Reconciler) synopsis(sv *survey.Survey) string {
	fields := map[string]string{
		"channel":            sv.Channel,
		"funnel_stage":       sv.FunnelStage,
		"website_url":        sv.WebsiteURL,
		"message_length":     strconv.Itoa(sv.MessageLength),
		"tone_of_voice":      sv.ToneOfVoice,
		"persuasion_trigger": sv.PersuasionTrigger,
		"template":           sv.Template,
	}

	var sb strings.Builder
	sb.WriteString("Campaign summary:")
	for _, step := range r.steps {
		switch step.Kind {
		case wizard.KindSummary:
			continue
		case wizard.KindFile:
			if sv.ContactFileName != "" {
				fmt.Fprintf(&sb, "\n- %s: %s (%d contacts)", humanize(step.Field), sv.ContactFileName, len(sv.ContactRows))
			}
			continue
		}
		v := fields[step.Field]
		if v == "" {
			continue
		}
		for _, o := range step.Options {
			if o.Value == v {
				v = o.Label
				break
			}
		}
		fmt.Fprintf(&sb, "\n- %s: %s", humanize(step.Field), v)
	}
	return sb.String()
}

func humanize(field string) string {
	out := strings.ReplaceAll(field, "_", " ")
	if out == "" {
		return out
	}
	return strings.ToUpper(out[:1]) + out[1:]
}
