package core

import (
	"context"
	"fmt"
	"strings"
)

// upsertModel runs one stage: normalize, validate required fields, write,
// verify completeness, and record successes and failures on report.
//
// A non-nil *StageAbort means the stage failed in a way already described on
// the report; the caller must roll back. A non-nil error is a storage fault
// the report knows nothing about.
func upsertModel(ctx context.Context, tx ImportTx, cfg ModelConfig, records []Record, report *Report) (IDMap, *StageAbort, error) {
	ids := newIDMap(cfg.UniqueBy)
	section := report.Model(cfg.Name)

	normalized, missing := normalizeRecords(cfg, records)
	if len(missing) > 0 {
		recordMissingFields(report, cfg.Name, missing)
		return ids, &StageAbort{
			Model:  cfg.Name,
			Reason: "missing required fields: " + strings.Join(missing, ", "),
		}, nil
	}

	if len(normalized) == 0 {
		return ids, nil, nil
	}

	written, err := tx.Upsert(ctx, cfg, normalized)
	if err != nil {
		if column, ok := notNullColumn(err); ok {
			if column == "" {
				column = "unknown"
			}
			recordMissingFields(report, cfg.Name, []string{column})
			return ids, &StageAbort{
				Model:  cfg.Name,
				Reason: "not-null violation on " + column,
			}, nil
		}
		return ids, nil, err
	}

	if len(written) != len(normalized) {
		msg := stageFailureMessage(cfg)
		section.Errors = append(section.Errors, Record{"description": msg})
		report.addGeneralError(cfg.Name, msg)
		return ids, &StageAbort{
			Model:  cfg.Name,
			Reason: fmt.Sprintf("store returned %d of %d rows", len(written), len(normalized)),
		}, nil
	}

	for _, row := range written {
		id, ok := toInt64(row["id"])
		if !ok {
			return ids, nil, fmt.Errorf("%s: store returned non-integer id %v", cfg.Name, row["id"])
		}
		ids.put(row, id)
	}
	section.Success = append(section.Success, written...)

	recordFailed := MessageRecordFailed
	if cfg.FailureMessage != "" {
		recordFailed = cfg.FailureMessage
	}
	for _, row := range normalized {
		if _, ok := ids.LookupRecord(row); ok {
			continue
		}
		entry := make(Record, len(cfg.UniqueBy)+1)
		for _, f := range cfg.UniqueBy {
			entry[f] = row[f]
		}
		entry["description"] = recordFailed
		section.Errors = append(section.Errors, entry)
	}

	return ids, nil, nil
}

// normalizeRecords projects every record onto cfg.UpdateFields, with absent
// fields set to nil, and drops later records whose key repeats an earlier one.
// It also returns the required fields found blank on any record, in first
// seen order. Validation looks at every record, duplicates included.
func normalizeRecords(cfg ModelConfig, records []Record) ([]Record, []string) {
	required := make(map[string]bool, len(cfg.RequiredFields))
	for _, f := range cfg.RequiredFields {
		required[f] = true
	}

	var missing []string
	missingSeen := make(map[string]bool)

	normalized := make([]Record, 0, len(records))
	seen := make(map[keyTuple]struct{}, len(records))

	for _, rec := range records {
		row := make(Record, len(cfg.UpdateFields))
		for _, f := range cfg.UpdateFields {
			v := rec[f]
			if required[f] && isBlank(v) && !missingSeen[f] {
				missingSeen[f] = true
				missing = append(missing, f)
			}
			row[f] = v
		}

		k := keyOf(row, cfg.UniqueBy)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		normalized = append(normalized, row)
	}

	return normalized, missing
}

// recordMissingFields records a required-field failure for model.
func recordMissingFields(report *Report, model ModelName, fields []string) {
	report.addGeneralError(model, importFailedMessage(model))
	section := report.Model(model)
	section.Errors = append(section.Errors, Record{
		"description": "The following fields are required and are missing: " + strings.Join(fields, ", "),
	})
}

func importFailedMessage(model ModelName) string {
	return fmt.Sprintf("Failed to import %s records", model)
}

func stageFailureMessage(cfg ModelConfig) string {
	if cfg.FailureMessage != "" {
		return cfg.FailureMessage
	}
	return importFailedMessage(cfg.Name)
}
