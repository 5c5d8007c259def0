package tools

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bdobrica/Kagami/common/redact"
	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
	"github.com/bdobrica/Kagami/internal/kagami/session"
)

// enforceSensitiveSendPolicy applies Layer 3 (send firewall) then Layer 2
// (output sanitization) to a handler output.  Policy outcomes mutate the
// output body and success flag; they never produce errors.
func enforceSensitiveSendPolicy(ctx context.Context, output *Output, sess session.Session, turn *session.TurnContext, toolName, callID string) *Output {
	output = enforceSendFirewall(ctx, output, sess, turn, toolName, callID)
	if turn.Exclusion.LayerOutputSanitizationEnabled {
		output = enforceContentGateway(ctx, output, sess, turn, toolName, callID)
	}
	return output
}

// enforceSendFirewall implements Layer 3: a filesystem output whose path the
// sensitive-path rules refuse to send is replaced with the deny message (or
// allowed once via prompt).
func enforceSendFirewall(ctx context.Context, output *Output, sess session.Session, turn *session.TurnContext, toolName, callID string) *Output {
	if !turn.Exclusion.LayerSendFirewallEnabled || output.Kind != KindFunction {
		return output
	}
	provenance, ok := output.Provenance.(FilesystemProvenance)
	if !ok || turn.SensitivePaths.DecisionSend(provenance.Path) != gateway.PathDeny {
		return output
	}

	if turn.Exclusion.PromptOnBlocked && promptForSend(ctx, sess, callID, provenance.Path) {
		return output
	}

	turn.Counters.Record(gateway.Layer3SendFirewall, gateway.SourceFilesystem, toolName, false, true)
	return &Output{
		Kind:       KindFunction,
		Body:       TextBody(turn.SensitivePaths.FormatDeniedMessage()),
		Success:    boolPtr(false),
		Provenance: provenance,
	}
}

// promptForSend asks the operator whether an excluded output may be sent.
func promptForSend(ctx context.Context, sess session.Session, callID, path string) bool {
	args := session.UserInputArgs{Questions: []session.UserInputQuestion{{
		Header:   "Exclusions",
		ID:       "exclusions_send",
		Question: "Allow kagami to send this excluded output?\n" + path,
		Options: []session.UserInputOption{
			{Label: "Allow once", Description: "Permit this output for the current request."},
			{Label: "Block", Description: "Keep exclusions blocking this output."},
		},
	}}}
	response := sess.RequestUserInput(ctx, callID, args)
	return response.First("exclusions_send") == "Allow once"
}

// enforceContentGateway implements Layer 2 over function and MCP outputs.
func enforceContentGateway(ctx context.Context, output *Output, sess session.Session, turn *session.TurnContext, toolName, callID string) *Output {
	epoch := turn.SensitivePaths.IgnoreEpoch()
	cfg := gateway.FromExclusion(&turn.Exclusion, turn.ExtraSecretPatterns, turn.ExtraAllowPatterns)
	source := output.Provenance.Source()
	originPath, _ := output.Provenance.OriginPath()
	logContext := &gateway.LogContext{
		KagamiHome: turn.KagamiHome,
		Layer:      gateway.Layer2OutputSanitization,
		Source:     source,
		Tool:       toolName,
		OriginType: output.Provenance.OriginType(),
		OriginPath: originPath,
		Mode:       turn.Exclusion.LogRedactions,
		MaxBytes:   turn.Exclusion.LogRedactionsMaxBytes,
		MaxFiles:   turn.Exclusion.LogRedactionsMaxFiles,
	}
	contextLabel := toolName + " output"

	if output.Kind == KindMcp {
		gw := gateway.New(cfg)
		if output.McpResult == nil {
			return output
		}
		sanitized, report := gw.ScanJSON(output.McpResult, turn.SensitivePaths, sess.GatewayCache(), epoch)
		if report.Redacted || report.Blocked {
			gateway.LogRedactionEvent(logContext, &report, string(output.McpResult), string(sanitized))
			turn.Counters.Record(gateway.Layer2OutputSanitization, gateway.SourceMcp, toolName, report.Redacted, report.Blocked)
		}
		output.McpResult = sanitized
		return output
	}

	if isTrustedLocalCodeOutput(output.Provenance) {
		cfg.SecretPatterns = false
	}
	gw := gateway.New(cfg)

	scanOne := func(original string) string {
		sanitized, report := gw.ScanText(original, turn.SensitivePaths, sess.GatewayCache(), epoch)
		next, report := resolveRedactionDecision(ctx, sess, turn, callID, contextLabel, original, sanitized, report)
		if report.Redacted || report.Blocked {
			gateway.LogRedactionEvent(logContext, &report, original, next)
			turn.Counters.Record(gateway.Layer2OutputSanitization, source, toolName, report.Redacted, report.Blocked)
		}
		if report.Redacted {
			output.Success = boolPtr(false)
		}
		return next
	}

	if output.Body.Items == nil {
		output.Body.Text = scanOne(output.Body.Text)
		return output
	}
	for i := range output.Body.Items {
		if output.Body.Items[i].Type == ContentInputText {
			output.Body.Items[i].Text = scanOne(output.Body.Items[i].Text)
		}
	}
	return output
}

// isTrustedLocalCodeOutput reports whether the provenance is a filesystem
// path with a trusted source-code extension.
func isTrustedLocalCodeOutput(provenance Provenance) bool {
	fs, ok := provenance.(FilesystemProvenance)
	if !ok {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(fs.Path), ".")
	if ext == "" {
		return false
	}
	return gateway.IsTrustedCodeExtension(ext)
}

// redactionDecision is the resolved outcome of the interactive prompt.
type redactionDecision int

const (
	decisionNone redactionDecision = iota
	decisionAllowOnce
	decisionAllowForSession
	decisionRedact
	decisionBlock
	decisionAddAllowlistLiteral
	decisionAddAllowlistRegex
	decisionAddBlocklist
)

// promptAnswers are the stable option labels of the redaction prompt.
const (
	answerAllowOnce       = "Allow once"
	answerAllowForSession = "Allow for this session"
	answerRedact          = "Redact"
	answerBlock           = "Block"
	answerAddToAllowlist  = "Add to allowlist"
	answerAddToBlocklist  = "Add to blocklist"
	answerRevealMatches   = "Reveal matched values"
	answerHideMatches     = "Hide matched values"
)

// resolveRedactionDecision asks the operator (when prompting is enabled and
// the scan found anything) how to proceed, and applies the answer.
func resolveRedactionDecision(ctx context.Context, sess session.Session, turn *session.TurnContext, callID, contextLabel, original, sanitized string, report gateway.Report) (string, gateway.Report) {
	decision, value := promptForRedaction(ctx, sess, turn, callID, contextLabel, &report)
	epoch := turn.SensitivePaths.IgnoreEpoch()

	switch decision {
	case decisionAllowOnce:
		return original, gateway.Safe()
	case decisionAllowForSession:
		sess.GatewayCache().RememberSafeReportMatchesForEpoch(&report, epoch)
		sess.GatewayCache().RememberSafeTextForEpoch(original, epoch)
		return original, gateway.Safe()
	case decisionRedact:
		if report.Redacted || report.Blocked || len(report.Matches) == 0 {
			return sanitized, report
		}
		cfg := gateway.FromExclusion(&turn.Exclusion, turn.ExtraSecretPatterns, turn.ExtraAllowPatterns)
		cfg.OnMatch = config.OnMatchRedact
		return gateway.New(cfg).ScanText(original, turn.SensitivePaths, gateway.NewCache(), epoch)
	case decisionBlock:
		report.Redacted = false
		report.Blocked = true
		return redact.BlockedPlaceholder, report
	case decisionAddAllowlistLiteral:
		sess.AddExclusionSecretPattern(ctx, regexp.QuoteMeta(value), true)
		return original, gateway.Safe()
	case decisionAddAllowlistRegex:
		sess.AddExclusionSecretPattern(ctx, value, true)
		return original, gateway.Safe()
	case decisionAddBlocklist:
		sess.AddExclusionSecretPattern(ctx, value, false)
		report.Redacted = false
		report.Blocked = true
		return redact.BlockedPlaceholder, report
	default:
		return sanitized, report
	}
}

// promptForRedaction runs the prompt loop, handling the reveal/hide toggles
// locally.  It returns decisionNone when prompting is disabled, the report
// is safe, or the operator dismissed the prompt.
func promptForRedaction(ctx context.Context, sess session.Session, turn *session.TurnContext, callID, contextLabel string, report *gateway.Report) (redactionDecision, string) {
	if !turn.Exclusion.PromptOnBlocked || report.IsSafe() {
		return decisionNone, ""
	}

	summaries := gateway.SummarizeMatches(report)
	hasSecret := false
	hasAllowlistable := false
	for _, summary := range summaries {
		switch summary.Reason {
		case gateway.ReasonSecretPattern:
			hasSecret = true
			hasAllowlistable = true
		case gateway.ReasonIgnoredPath:
			hasAllowlistable = true
		}
	}

	reveal := hasSecret && turn.Exclusion.PromptRevealSecretMatches
	for {
		question := "Exclusions matched content in " + contextLabel + ". How should kagami proceed?"
		if reveal {
			question += "\n(Showing full matched values.)"
		}
		if summary := gateway.FormatMatches(report, gateway.Layer2OutputSanitization, reveal); summary != "" {
			question += "\n" + summary
		}

		options := []session.UserInputOption{
			{Label: answerAllowOnce, Description: "Permit this content for the current request."},
			{Label: answerAllowForSession, Description: "Permit this exact content for this kagami session."},
			{Label: answerRedact, Description: "Redact matching content."},
			{Label: answerBlock, Description: "Block matching content."},
		}
		if hasSecret {
			if reveal {
				options = append(options, session.UserInputOption{
					Label:       answerHideMatches,
					Description: "Return to redacted previews for secret matches.",
				})
			} else {
				options = append(options, session.UserInputOption{
					Label:       answerRevealMatches,
					Description: "Show the full matched values in this prompt (may display secrets).",
				})
			}
		}
		if hasAllowlistable {
			options = append(options, session.UserInputOption{
				Label:       answerAddToAllowlist,
				Description: "Allow this matched value through exclusions going forward.",
			})
		}
		if hasSecret {
			options = append(options, session.UserInputOption{
				Label:       answerAddToBlocklist,
				Description: "Add this value to extra secret patterns to scan.",
			})
		}

		response := sess.RequestUserInput(ctx, callID, session.UserInputArgs{Questions: []session.UserInputQuestion{{
			Header:   "Exclusions",
			ID:       "exclusions_redaction",
			Question: question,
			Options:  options,
		}}})
		answer := response.First("exclusions_redaction")

		switch answer {
		case answerRevealMatches:
			reveal = true
			continue
		case answerHideMatches:
			reveal = false
			continue
		case answerAllowOnce:
			return decisionAllowOnce, ""
		case answerAllowForSession:
			return decisionAllowForSession, ""
		case answerRedact:
			return decisionRedact, ""
		case answerBlock:
			return decisionBlock, ""
		case answerAddToAllowlist:
			selected, ok := selectMatchForList(ctx, sess, callID, summaries, reveal,
				"Select a matched value to add to the allowlist.", "exclusions_allowlist_match",
				gateway.ReasonSecretPattern, gateway.ReasonIgnoredPath)
			if !ok {
				return decisionNone, ""
			}
			if selected.Reason == gateway.ReasonIgnoredPath {
				return decisionAddAllowlistLiteral, selected.Value
			}
			return decisionAddAllowlistRegex, selected.Value
		case answerAddToBlocklist:
			selected, ok := selectMatchForList(ctx, sess, callID, summaries, reveal,
				"Select a matched value to add to the blocklist.", "exclusions_blocklist_match",
				gateway.ReasonSecretPattern)
			if !ok {
				return decisionNone, ""
			}
			return decisionAddBlocklist, selected.Value
		default:
			return decisionNone, ""
		}
	}
}

// selectMatchForList narrows the summaries to the given reasons and, when
// more than one candidate remains, asks the operator to pick one.
func selectMatchForList(ctx context.Context, sess session.Session, callID string, summaries []gateway.MatchSummary, reveal bool, prompt, questionID string, reasons ...gateway.Reason) (gateway.MatchSummary, bool) {
	allowed := make(map[gateway.Reason]struct{}, len(reasons))
	for _, reason := range reasons {
		allowed[reason] = struct{}{}
	}
	var candidates []gateway.MatchSummary
	for _, summary := range summaries {
		if _, ok := allowed[summary.Reason]; ok {
			candidates = append(candidates, summary)
		}
	}
	switch len(candidates) {
	case 0:
		return gateway.MatchSummary{}, false
	case 1:
		return candidates[0], true
	}

	options := make([]session.UserInputOption, 0, len(candidates))
	for _, candidate := range candidates {
		options = append(options, session.UserInputOption{Label: candidate.Label(reveal)})
	}
	response := sess.RequestUserInput(ctx, callID, session.UserInputArgs{Questions: []session.UserInputQuestion{{
		Header:   "Exclusions",
		ID:       questionID,
		Question: prompt,
		Options:  options,
	}}})
	answer := response.First(questionID)
	for _, candidate := range candidates {
		if candidate.Label(reveal) == answer {
			return candidate, true
		}
	}
	return gateway.MatchSummary{}, false
}
