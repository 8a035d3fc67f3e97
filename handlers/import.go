package handlers

import (
	"log"
	"net/http"
	"strings"

	"fleettrack/importer"
)

// maxImportSize caps uploaded workbooks at 10 MB.
const maxImportSize = 10 << 20

type ImportHandler struct {
	importer *importer.Importer
}

func NewImportHandler(im *importer.Importer) *ImportHandler {
	return &ImportHandler{importer: im}
}

type ImportResponse struct {
	Total   int                  `json:"total"`
	Created int                  `json:"created"`
	Failed  int                  `json:"failed"`
	Rows    []importer.RowResult `json:"rows"`
}

// Import handles POST /api/import/{loads|trucks|drivers}. The file comes as a
// multipart upload under the "file" field; each row succeeds or fails on its
// own and the per-row outcomes are echoed back.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind, ok := importKind(r.URL.Path)
	if !ok {
		writeError(w, "Unknown import target", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "A file upload named 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	results, err := h.importer.Import(r.Context(), kind, header.Filename, file)
	if err != nil {
		log.Printf("❌ Import of %s failed: %v", header.Filename, err)
		writeError(w, "Could not parse the uploaded file", http.StatusBadRequest)
		return
	}

	resp := ImportResponse{Total: len(results), Rows: results}
	for _, result := range results {
		if result.Failed() {
			resp.Failed++
		} else {
			resp.Created++
		}
	}
	log.Printf("📥 Imported %s from %s: %d created, %d failed", kind, header.Filename, resp.Created, resp.Failed)
	writeJSON(w, resp)
}

func importKind(path string) (importer.Kind, bool) {
	switch {
	case strings.HasSuffix(path, "/loads"):
		return importer.KindLoads, true
	case strings.HasSuffix(path, "/trucks"):
		return importer.KindTrucks, true
	case strings.HasSuffix(path, "/drivers"):
		return importer.KindDrivers, true
	}
	return "", false
}
