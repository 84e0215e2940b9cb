package catalog

// Status is the externally visible outcome of one requested file.
type Status string

// Outcome statuses.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// TransferRequest selects files from one drive and names the collection
// they are written under. File ids are only unique within a drive, so the
// drive id is mandatory.
type TransferRequest struct {
	FileIDs      []string `json:"file_ids" validate:"required,min=1,dive,required,notblank"`
	CollectionID string   `json:"destination_collection_id" validate:"required,notblank,excludes=/"`
	DriveID      string   `json:"drive_id" validate:"required,notblank"`
	SiteID       string   `json:"site_id,omitempty"`
}

// TransferOutcome records what happened to one requested file id.
// DestinationKey is set only on success, ErrorDetail only on failure or skip.
type TransferOutcome struct {
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name,omitempty"`
	Status         Status `json:"status"`
	DestinationKey string `json:"destination_key,omitempty"`
	DestinationURI string `json:"destination_uri,omitempty"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
	ErrorDetail    string `json:"error_detail,omitempty"`
}

// TransferReport aggregates one TransferSelected call. Results has exactly
// one entry per requested file id, in request order, and
// Total == Successful + Failed + Skipped.
type TransferReport struct {
	BatchID          string            `json:"batch_id"`
	Total            int               `json:"total"`
	Successful       int               `json:"successful"`
	Failed           int               `json:"failed"`
	Skipped          int               `json:"skipped"`
	BytesTransferred int64             `json:"bytes_transferred"`
	Results          []TransferOutcome `json:"results"`
}

// Tally recomputes the aggregate counters from Results.
func (r *TransferReport) Tally() {
	r.Total = len(r.Results)
	r.Successful, r.Failed, r.Skipped = 0, 0, 0
	r.BytesTransferred = 0

	for i := range r.Results {
		switch r.Results[i].Status {
		case StatusSuccess:
			r.Successful++
			r.BytesTransferred += r.Results[i].SizeBytes
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
}
