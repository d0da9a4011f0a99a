package bankloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// DefaultUCIBaseURL is the dataset API of the UCI Machine Learning Repository.
const DefaultUCIBaseURL = "https://archive.ics.uci.edu/api/dataset"

// UCISource fetches a dataset from the UCI Machine Learning Repository.
// Columns are split into features and targets by the roles the repository
// declares for its variables; ID columns are dropped.
type UCISource struct {
	DatasetID  int
	BaseURL    string
	HTTPClient *http.Client
}

type uciResponse struct {
	Status  int     `json:"status"`
	Message string  `json:"message"`
	Data    uciData `json:"data"`
}

type uciData struct {
	UCIID     int           `json:"uci_id"`
	Name      string        `json:"name"`
	DataURL   string        `json:"data_url"`
	Variables []uciVariable `json:"variables"`
}

type uciVariable struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Type string `json:"type"`
}

func (s *UCISource) Name() string {
	return fmt.Sprintf("uci:%d", s.datasetID())
}

func (s *UCISource) datasetID() int {
	if s.DatasetID == 0 {
		return UCIDatasetID
	}
	return s.DatasetID
}

func (s *UCISource) client() *http.Client {
	if s.HTTPClient == nil {
		return http.DefaultClient
	}
	return s.HTTPClient
}

// Fetch downloads the dataset metadata and its CSV.
func (s *UCISource) Fetch(ctx context.Context) (*Table, *Table, error) {
	l := log.Ctx(ctx)

	meta, err := s.metadata(ctx)
	if err != nil {
		return nil, nil, &FetchError{Source: s.Name(), Err: err}
	}
	l.Info().Str("dataset", meta.Name).Str("data_url", meta.DataURL).Msg("fetched dataset metadata")

	body, err := s.get(ctx, meta.DataURL)
	if err != nil {
		return nil, nil, &FetchError{Source: s.Name(), Err: err}
	}
	defer body.Close()

	t, err := CSVParser()(ctx, body)
	if err != nil {
		return nil, nil, &FetchError{Source: s.Name(), Reason: "malformed data file", Err: err}
	}

	var featureNames, targetNames []string
	for _, v := range meta.Variables {
		switch v.Role {
		case "Feature":
			featureNames = append(featureNames, v.Name)
		case "Target":
			targetNames = append(targetNames, v.Name)
		}
	}

	_, features := SplitColumns(t, featureNames)
	_, targets := SplitColumns(t, targetNames)

	l.Info().Int("rows", t.Len()).Int("features", len(features.Columns)).Int("targets", len(targets.Columns)).
		Msg("downloaded dataset")

	return features, targets, nil
}

func (s *UCISource) metadata(ctx context.Context) (*uciData, error) {
	base := s.BaseURL
	if base == "" {
		base = DefaultUCIBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, xerrors.Errorf("invalid base url %s: %w", base, err)
	}
	q := u.Query()
	q.Set("id", strconv.Itoa(s.datasetID()))
	u.RawQuery = q.Encode()

	body, err := s.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var res uciResponse
	if err := json.NewDecoder(body).Decode(&res); err != nil {
		return nil, xerrors.Errorf("failed to decode dataset metadata: %w", err)
	}

	if res.Status != http.StatusOK {
		return nil, xerrors.Errorf("dataset api returned status %d: %s", res.Status, res.Message)
	}

	if res.Data.DataURL == "" {
		return nil, xerrors.Errorf("dataset %d has no data file", s.datasetID())
	}

	return &res.Data, nil
}

func (s *UCISource) get(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to build http request: %w", err)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, xerrors.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, xerrors.Errorf("GET %s failed with status code %d", u, resp.StatusCode)
	}

	return resp.Body, nil
}
