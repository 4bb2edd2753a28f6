package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/domain"
)

func apiConfig(baseURL string) domain.APIClientConfig {
	return domain.APIClientConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

func TestRxNormClient_SearchByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drugs.json", r.URL.Path)
		assert.Equal(t, "warfarin", r.URL.Query().Get("name"))
		fmt.Fprint(w, `{"drugGroup":{"conceptGroup":[{"tty":"SBD","conceptProperties":[
			{"rxcui":"855332","name":"warfarin sodium 5 MG Oral Tablet","tty":"SCD"},
			{"rxcui":"855333","name":"warfarin sodium 10 MG Oral Tablet","tty":"SCD"}]}]}}`)
	}))
	defer server.Close()

	client := NewRxNormClient(apiConfig(server.URL))

	concepts, err := client.SearchByName(context.Background(), "warfarin", 10)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "855332", concepts[0].RxCUI)
	assert.Equal(t, "SCD", concepts[0].TermType)
}

func TestRxNormClient_SearchByName_MaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"drugGroup":{"conceptGroup":[{"conceptProperties":[
			{"rxcui":"1","name":"a"},{"rxcui":"2","name":"b"},{"rxcui":"3","name":"c"}]}]}}`)
	}))
	defer server.Close()

	client := NewRxNormClient(apiConfig(server.URL))

	concepts, err := client.SearchByName(context.Background(), "a", 2)
	require.NoError(t, err)
	assert.Len(t, concepts, 2)
}

func TestRxNormClient_GetByRxCUI_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewRxNormClient(apiConfig(server.URL))

	details, err := client.GetByRxCUI(context.Background(), "999999")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestRxNormClient_GetByRxCUI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rxcui/855332/properties.json":
			fmt.Fprint(w, `{"properties":{"rxcui":"855332","name":"Coumadin","tty":"BN"}}`)
		case "/rxclass/class/byRxcui.json":
			fmt.Fprint(w, `{"rxclassDrugInfoList":{"rxclassDrugInfo":[
				{"rxclassMinConceptItem":{"className":"Anticoagulants"}},
				{"rxclassMinConceptItem":{"className":"Anticoagulants"}}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewRxNormClient(apiConfig(server.URL))

	details, err := client.GetByRxCUI(context.Background(), "855332")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "Coumadin", details.Name)
	assert.Equal(t, DrugTypeBrand, details.Type)
	assert.Equal(t, []string{"Anticoagulants"}, details.DrugClasses)
}

func TestOpenFDAClient_GetLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/label.json", r.URL.Path)
		fmt.Fprint(w, `{"results":[{
			"drug_interactions":["Aspirin increases bleeding risk."],
			"contraindications":["Pregnancy."],
			"warnings":["Bleeding risk."],
			"indications_and_usage":["Prophylaxis of thrombosis."],
			"openfda":{"brand_name":["COUMADIN"],"generic_name":["WARFARIN SODIUM"],"route":["ORAL"]}}]}`)
	}))
	defer server.Close()

	client := NewOpenFDAClient(apiConfig(server.URL + "/"))

	label, err := client.GetLabel(context.Background(), "warfarin")
	require.NoError(t, err)
	require.NotNil(t, label)
	assert.Equal(t, []string{"COUMADIN"}, label.BrandNames)
	assert.Equal(t, []string{"Aspirin increases bleeding risk."}, label.DrugInteractions)
	assert.Equal(t, []string{"Bleeding risk."}, label.Warnings)
}

func TestOpenFDAClient_NotFoundMeansNoLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOpenFDAClient(apiConfig(server.URL + "/"))

	label, err := client.GetLabel(context.Background(), "obscuredrug")
	require.NoError(t, err)
	assert.Nil(t, label)

	sections, err := client.DrugInteractionSections(context.Background(), "obscuredrug")
	require.NoError(t, err)
	assert.Nil(t, sections)
}

func TestOpenFDAClient_DrugInteractionSections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{
			"drug_interactions":["Interaction text."],
			"contraindications":["Contra text."],
			"warnings":["Warning text."]}]}`)
	}))
	defer server.Close()

	client := NewOpenFDAClient(apiConfig(server.URL + "/"))

	sections, err := client.DrugInteractionSections(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.Equal(t, []string{"Interaction text.", "Contra text.", "Warning text."}, sections)
}

func TestTFDAClient_SearchByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"許可證字號":"衛署藥製字第012345號","中文品名":"可邁丁錠","英文品名":"COUMADIN TABLETS","主成分略述":"WARFARIN SODIUM","劑型":"錠劑","註銷狀態":""},
			{"許可證字號":"衛署藥製字第054321號","中文品名":"阿斯匹靈錠","英文品名":"ASPIRIN TABLETS","主成分略述":"ASPIRIN","劑型":"錠劑","註銷狀態":""}]`)
	}))
	defer server.Close()

	client := NewTFDAClient(apiConfig(server.URL), nil)

	permits, err := client.SearchByName(context.Background(), "coumadin", 10)
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, "衛署藥製字第012345號", permits[0].PermitNumber)
	assert.False(t, permits[0].Cancelled)

	// Second search reuses the in-memory dataset.
	byIngredient, err := client.SearchByIngredient(context.Background(), "aspirin", 10)
	require.NoError(t, err)
	require.Len(t, byIngredient, 1)
	assert.Equal(t, "ASPIRIN TABLETS", byIngredient[0].EnglishName)
}

func TestNHIClient_CodeLookupAndCoverage(t *testing.T) {
	client := NewNHIClient(domain.APIClientConfig{}, nil)

	record, err := client.SearchByNHICode(context.Background(), "a022664100")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "WARFARIN SODIUM", record.Ingredient)
	assert.InDelta(t, 5.50, record.Price, 0.001)

	missing, err := client.SearchByNHICode(context.Background(), "Z999999999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	coverage, err := client.CheckCoverage(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.True(t, coverage.Covered)
	require.Len(t, coverage.Records, 1)

	uncovered, err := client.CheckCoverage(context.Background(), "unobtainium")
	require.NoError(t, err)
	assert.False(t, uncovered.Covered)
}

type fakeNomenclature struct {
	calls   int64
	failing bool
}

func (f *fakeNomenclature) SearchByName(ctx context.Context, name string, maxResults int) ([]DrugConcept, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.failing {
		return nil, fmt.Errorf("upstream down")
	}
	if name == "unknowndrug" {
		return nil, nil
	}
	return []DrugConcept{{RxCUI: "855332", Name: name}}, nil
}

func (f *fakeNomenclature) GetByRxCUI(ctx context.Context, rxcui string) (*DrugDetails, error) {
	return &DrugDetails{RxCUI: rxcui, Name: "warfarin", Type: DrugTypeGeneric}, nil
}

func TestCachedDrugResolver_CachesLookups(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fake := &fakeNomenclature{}

	resolver, err := NewCachedDrugResolver(fake, 10, time.Minute, logger)
	require.NoError(t, err)

	first, err := resolver.Resolve(context.Background(), "Warfarin")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "855332", first.RxCUI)

	second, err := resolver.Resolve(context.Background(), "  warfarin ")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, int64(1), atomic.LoadInt64(&fake.calls))

	stats := resolver.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ExternalCalls)
}

func TestCachedDrugResolver_CachesNegativeResults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fake := &fakeNomenclature{}

	resolver, err := NewCachedDrugResolver(fake, 10, time.Minute, logger)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		details, err := resolver.Resolve(context.Background(), "unknowndrug")
		require.NoError(t, err)
		assert.Nil(t, details)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&fake.calls))
}

func TestCachedDrugResolver_Invalidate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fake := &fakeNomenclature{}

	resolver, err := NewCachedDrugResolver(fake, 10, time.Minute, logger)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "warfarin")
	require.NoError(t, err)

	resolver.InvalidateCache("warfarin")

	_, err = resolver.Resolve(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fake.calls))
}

func TestResilientClient_BreakerOpensAfterFailures(t *testing.T) {
	logger, _ := test.NewNullLogger()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewResilientDrugDataClient(domain.ExternalConfig{
		RxNorm:  apiConfig(server.URL),
		OpenFDA: apiConfig(server.URL + "/"),
		TFDA:    apiConfig(server.URL),
		NHI:     domain.APIClientConfig{},
	}, nil, logger)

	for i := 0; i < 5; i++ {
		_, err := client.SearchDrugs(context.Background(), "warfarin", 5)
		require.Error(t, err)
	}

	_, err := client.SearchDrugs(context.Background(), "warfarin", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestResilientClient_NHIWithoutBreaker(t *testing.T) {
	logger, _ := test.NewNullLogger()

	client := NewResilientDrugDataClient(domain.ExternalConfig{}, nil, logger)

	coverage, err := client.CheckNHICoverage(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.True(t, coverage.Covered)
}

func TestResilientClient_ResolveDrugNameCachesLookups(t *testing.T) {
	logger, _ := test.NewNullLogger()

	var searches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drugs.json":
			atomic.AddInt64(&searches, 1)
			fmt.Fprint(w, `{"drugGroup":{"conceptGroup":[{"conceptProperties":[
				{"rxcui":"855332","name":"warfarin sodium 5 MG Oral Tablet","tty":"SCD"}]}]}}`)
		case "/rxcui/855332/properties.json":
			fmt.Fprint(w, `{"properties":{"rxcui":"855332","name":"Coumadin","tty":"BN"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewResilientDrugDataClient(domain.ExternalConfig{
		RxNorm: apiConfig(server.URL),
	}, nil, logger)

	first, err := client.ResolveDrugName(context.Background(), "Warfarin")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Coumadin", first.Name)

	second, err := client.ResolveDrugName(context.Background(), "  warfarin ")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.EqualValues(t, 1, atomic.LoadInt64(&searches))
	stats := client.ResolverStats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestResilientClient_InteractionSectionsUseResolvedName(t *testing.T) {
	logger, _ := test.NewNullLogger()

	var labelQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drugs.json":
			fmt.Fprint(w, `{"drugGroup":{"conceptGroup":[{"conceptProperties":[
				{"rxcui":"855332","name":"warfarin sodium 5 MG Oral Tablet","tty":"SCD"}]}]}}`)
		case "/rxcui/855332/properties.json":
			fmt.Fprint(w, `{"properties":{"rxcui":"855332","name":"Coumadin","tty":"BN"}}`)
		case "/label.json":
			labelQuery = r.URL.Query().Get("search")
			fmt.Fprint(w, `{"results":[{"drug_interactions":["Avoid aspirin"]}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewResilientDrugDataClient(domain.ExternalConfig{
		RxNorm:  apiConfig(server.URL),
		OpenFDA: apiConfig(server.URL + "/"),
	}, nil, logger)

	sections, err := client.DrugInteractionSections(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.Equal(t, []string{"Avoid aspirin"}, sections)
	assert.Contains(t, labelQuery, "Coumadin")
}
