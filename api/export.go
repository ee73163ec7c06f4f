package api

import (
	"encoding/csv"
	"net/http"

	"github.com/holistic/reporting-engine/factory"
)

// Export file names and CSV headers.
var (
	therapistExportHeader      = []string{"id", "organization_id", "date_joined"}
	interactionExportHeader    = []string{"therapist_id", "interaction_date", "counter", "chat_count", "call_count", "organization_id", "organization_date_joined"}
	totalTherapistExportHeader = []string{"organization_id", "is_active", "period_type", "start_date", "end_date", "value"}
	rateExportHeader           = []string{"organization_id", "type", "period_type", "start_date", "end_date", "value"}
)

const (
	therapistExportName      = "therapists"
	interactionExportName    = "therapists_interactions"
	totalTherapistExportName = "total_therapists"
	rateExportName           = "therapists_rates"
)

type csvRow interface {
	csvRecord() []string
}

// exportSpec describes one export: where rows come from and how they look.
type exportSpec[S any, E csvRow] struct {
	name    string
	header  []string
	each    func(r *http.Request, fn func(S) error) error
	convert func(S) E
}

// serveExport decodes the export request and writes every row as a JSON
// array or a streamed CSV attachment.
func serveExport[S any, E csvRow](h *Handler, w http.ResponseWriter, r *http.Request, spec exportSpec[S, E]) {
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	format, err := h.records.ParseExportRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	switch format {
	case factory.FormatJSON:
		rows := []E{}
		err := spec.each(r, func(row S) error {
			rows = append(rows, spec.convert(row))
			return nil
		})
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		setAttachment(w, spec.name+".json")
		writeJSON(w, http.StatusOK, rows)

	case factory.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		setAttachment(w, spec.name+".csv")
		w.WriteHeader(http.StatusOK)

		cw := csv.NewWriter(w)
		if err := cw.Write(spec.header); err != nil {
			h.logError(r, "csv export failed", err)
			return
		}
		err := spec.each(r, func(row S) error {
			return cw.Write(spec.convert(row).csvRecord())
		})
		cw.Flush()
		if err == nil {
			err = cw.Error()
		}
		if err != nil {
			// headers are already sent
			h.logError(r, "csv export failed", err)
		}
	}
}

func setAttachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
}
