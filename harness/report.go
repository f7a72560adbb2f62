package harness

import (
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasttemplate"

	"github.com/mlantern/camtest/harness/definitions"
)

// DefaultRecordFormat is the one-line result record the reporter emits.
const DefaultRecordFormat = "{{status}}: {{test}}, {{model}}, run {{run}}{{reason}}"

// Reporter converts terminal run results into report records. It is purely
// observational: no retries, no state.
type Reporter struct {
	tpl *fasttemplate.Template
}

// NewReporter builds a reporter with a record template. An empty format
// selects DefaultRecordFormat.
func NewReporter(format string) *Reporter {
	if format == "" {
		format = DefaultRecordFormat
	}
	return &Reporter{tpl: fasttemplate.New(format, "{{", "}}")}
}

// Report renders and logs the record for one result, returning the rendered
// line.
func (p *Reporter) Report(res definitions.Result) string {
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}
	reason := ""
	if res.Reason != "" {
		reason = ": " + res.Reason
	}

	line := p.tpl.ExecuteString(map[string]interface{}{
		"status": status,
		"model":  res.Model,
		"test":   res.Test,
		"run":    res.RunID,
		"reason": reason,
	})

	if res.Passed {
		log.Info().Msg(line)
	} else {
		log.Error().Msg(line)
	}
	return line
}
