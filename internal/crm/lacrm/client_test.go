package lacrm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmotor/internal/crm"
	"salgsmotor/pkg/platform/sentinel"
)

// fakeAPI answers by Function and records every call.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(params map[string]any) (int, string)
}

type call struct {
	Function string
	Params   map[string]any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("UserCode") != "U1" || r.PostForm.Get("APIToken") != "T1" {
		_, _ = w.Write([]byte(`{"Success":false,"Result":"Invalid user code or API token"}`))
		return
	}
	fn := r.PostForm.Get("Function")
	var params map[string]any
	if p := r.PostForm.Get("Parameters"); p != "" {
		_ = json.Unmarshal([]byte(p), &params)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{Function: fn, Params: params})
	h := f.handlers[fn]
	f.mu.Unlock()
	if h == nil {
		_, _ = w.Write([]byte(`{"Success":false,"Result":"Unknown function"}`))
		return
	}
	status, body := h(params)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeAPI) functions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Function)
	}
	return out
}

func newClient(t *testing.T, api *fakeAPI, userCode string, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := New(userCode, "T1", append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)...)
	require.NoError(t, err)
	return c
}

const companyCard = `{
  "ContactId": "3962",
  "IsCompany": "1",
  "FirstName": "Acme Bygg AS",
  "CompanyName": "",
  "Email": [{"Text": "post@acme.no", "Type": "Work"}],
  "Phone": [{"Text": "22 33 44 55", "Type": "Work"}],
  "Website": [{"Text": "www.acme.no"}],
  "CustomFields": [{"FieldId": "3001", "Value": "923609016"}, {"FieldId": "3002", "Value": 12}]
}`

const contactPerson = `{
  "ContactId": 3963,
  "IsCompany": 0,
  "FirstName": "Kari",
  "LastName": "Nordmann",
  "CompanyName": "Nordmann Frisør",
  "Email": "kari@gmail.com",
  "CustomFields": {"3001": ""}
}`

func TestNew(t *testing.T) {
	_, err := New("", "T1")
	assert.ErrorContains(t, err, "user code is required")
	_, err = New("U1", "")
	assert.ErrorContains(t, err, "api token is required")
}

func TestSearchRecords(t *testing.T) {
	t.Run("maps company cards and contact persons", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"SearchContacts": func(map[string]any) (int, string) {
				return 200, `{"Success":true,"Result":[` + companyCard + `,` + contactPerson + `]}`
			},
		}}
		c := newClient(t, api, "U1")

		recs, err := c.SearchRecords(context.Background(), crm.Filter{})
		require.NoError(t, err)
		require.Len(t, recs, 2)

		card := recs[0]
		assert.Equal(t, "3962", card.ID)
		assert.Equal(t, crm.KindCompany, card.Kind)
		assert.Equal(t, "Acme Bygg AS", card.CompanyDisplayName())
		assert.Equal(t, "post@acme.no", card.Email)
		assert.Equal(t, "22 33 44 55", card.Phone)
		assert.Equal(t, "www.acme.no", card.Website)
		assert.Equal(t, "923609016", card.Fields["3001"])
		assert.Equal(t, "12", card.Fields["3002"])

		person := recs[1]
		assert.Equal(t, "3963", person.ID)
		assert.Equal(t, crm.KindContact, person.Kind)
		assert.Equal(t, "Kari Nordmann", person.Name)
		assert.Equal(t, "Nordmann Frisør", person.CompanyDisplayName())
		assert.Equal(t, "kari@gmail.com", person.Email)
	})

	t.Run("pages until a short page", func(t *testing.T) {
		api := &fakeAPI{}
		api.handlers = map[string]func(map[string]any) (int, string){
			"SearchContacts": func(p map[string]any) (int, string) {
				if p["Page"].(float64) == 1 {
					return 200, `{"Success":true,"Result":[` + companyCard + `]}`
				}
				return 200, `{"Success":true,"Result":[]}`
			},
		}
		c := newClient(t, api, "U1", WithPageSize(1))

		recs, err := c.SearchRecords(context.Background(), crm.Filter{SearchTerm: "acme"})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Equal(t, []string{"SearchContacts", "SearchContacts"}, api.functions())
		assert.Equal(t, "acme", api.calls[0].Params["SearchText"])
	})

	t.Run("record id filter reads one contact", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"GetContact": func(p map[string]any) (int, string) {
				assert.Equal(t, "3962", p["ContactId"])
				return 200, `{"Success":true,"Result":` + companyCard + `}`
			},
		}}
		c := newClient(t, api, "U1")

		recs, err := c.SearchRecords(context.Background(), crm.Filter{RecordID: "3962"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "3962", recs[0].ID)
	})
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("bad credentials are unauthorized", func(t *testing.T) {
		c := newClient(t, &fakeAPI{}, "WRONG")
		_, err := c.SearchRecords(ctx, crm.Filter{})
		require.Error(t, err)
		assert.True(t, crm.IsUnauthorized(err))
	})

	t.Run("http 401 is unauthorized", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"EditContact": func(map[string]any) (int, string) { return 401, `{}` },
		}}
		c := newClient(t, api, "U1")
		err := c.WriteCustomField(ctx, "3962", "3001", "923609016")
		assert.ErrorIs(t, err, crm.ErrUnauthorized)
	})

	t.Run("rejected write", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"EditContact": func(map[string]any) (int, string) {
				return 200, `{"Success":false,"Result":"Invalid custom field id"}`
			},
		}}
		c := newClient(t, api, "U1")
		err := c.WriteCustomField(ctx, "3962", "9999", "x")
		require.ErrorIs(t, err, crm.ErrRejected)
		assert.False(t, crm.IsUnauthorized(err))
		assert.Contains(t, err.Error(), "Invalid custom field id")
	})

	t.Run("server errors are unavailable", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"GetContact": func(map[string]any) (int, string) { return 502, `bad gateway` },
		}}
		c := newClient(t, api, "U1")
		_, err := c.ReadCustomFields(ctx, "3962")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestWriteCustomField(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
		"EditContact": func(map[string]any) (int, string) { return 200, `{"Success":true,"Result":[]}` },
	}}
	c := newClient(t, api, "U1")

	require.NoError(t, c.WriteCustomField(context.Background(), "3962", "3001", "923609016"))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "3962", api.calls[0].Params["ContactId"])
	assert.Equal(t, "923609016", api.calls[0].Params["3001"])
}

func TestReadCustomFields(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
		"GetContact": func(map[string]any) (int, string) {
			return 200, `{"Success":true,"Result":[` + companyCard + `]}`
		},
	}}
	c := newClient(t, api, "U1")

	fields, err := c.ReadCustomFields(context.Background(), "3962")
	require.NoError(t, err)
	assert.Equal(t, map[crm.FieldID]string{"3001": "923609016", "3002": "12"}, fields)
}

func TestCreatePipelineItem(t *testing.T) {
	item := crm.PipelineItem{
		Name:      "Acme Bygg AS - Webdesign / Nettprofil",
		Status:    "Foreslått",
		Company:   "Acme Bygg AS",
		OrgNumber: "923609016",
		Category:  "Webdesign / Nettprofil",
		Comment:   "Ring dem.",
	}
	pipeline := Pipeline{
		Name:     "Potensielle kunder",
		Statuses: []string{"Foreslått", "Kontaktet"},
		Fields:   map[string]string{PipelineFieldOrgNumber: "5001", PipelineFieldCategory: "5002"},
	}

	t.Run("creates the pipeline once when missing", func(t *testing.T) {
		var contacts []any
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"GetPipelines": func(map[string]any) (int, string) {
				return 200, `{"Success":true,"Result":[{"PipelineId":"11","Name":"Annet"}]}`
			},
			"CreatePipeline": func(p map[string]any) (int, string) {
				assert.Equal(t, "Potensielle kunder", p["Name"])
				return 200, `{"Success":true,"Result":{"PipelineId":"12"}}`
			},
			"CreatePipelineItem": func(p map[string]any) (int, string) {
				assert.Equal(t, "12", p["PipelineId"])
				contacts = append(contacts, p["ContactId"])
				assert.Equal(t, "Foreslått", p["StatusName"])
				custom := p["CustomFields"].(map[string]any)
				assert.Equal(t, "923609016", custom["5001"])
				assert.Equal(t, "Webdesign / Nettprofil", custom["5002"])
				assert.Len(t, custom, 2, "unmapped attributes are not sent")
				return 200, `{"Success":true,"Result":{"PipelineItemId":777}}`
			},
		}}
		c := newClient(t, api, "U1", WithPipeline(pipeline))

		id, err := c.CreatePipelineItem(context.Background(), "3962", item)
		require.NoError(t, err)
		assert.Equal(t, "777", id)

		_, err = c.CreatePipelineItem(context.Background(), "3963", item)
		require.NoError(t, err)
		assert.Equal(t, []string{"GetPipelines", "CreatePipeline", "CreatePipelineItem", "CreatePipelineItem"}, api.functions())
		assert.Equal(t, []any{"3962", "3963"}, contacts, "each item is filed on the contact it was created for")
	})

	t.Run("malformed item response is an error", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"GetPipelines": func(map[string]any) (int, string) {
				return 200, `{"Success":true,"Result":[{"PipelineId":"42","Name":"Potensielle kunder"}]}`
			},
			"CreatePipelineItem": func(map[string]any) (int, string) {
				return 200, `{"Success":true,"Result":"created"}`
			},
		}}
		c := newClient(t, api, "U1", WithPipeline(pipeline))

		id, err := c.CreatePipelineItem(context.Background(), "3962", item)
		require.ErrorIs(t, err, crm.ErrRejected)
		assert.Empty(t, id)
	})

	t.Run("reuses an existing pipeline", func(t *testing.T) {
		api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
			"GetPipelines": func(map[string]any) (int, string) {
				return 200, `{"Success":true,"Result":[{"PipelineId":42,"Name":"Potensielle kunder"}]}`
			},
			"CreatePipelineItem": func(p map[string]any) (int, string) {
				assert.Equal(t, "42", p["PipelineId"])
				return 200, `{"Success":true,"Result":{"PipelineItemId":"9"}}`
			},
		}}
		c := newClient(t, api, "U1", WithPipeline(pipeline))

		id, err := c.CreatePipelineItem(context.Background(), "3962", item)
		require.NoError(t, err)
		assert.Equal(t, "9", id)
	})
}

func TestListCustomFields(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(map[string]any) (int, string){
		"GetCustomFields": func(map[string]any) (int, string) {
			return 200, `{"Success":true,
				"Company":[{"CustomFieldId":"3001","Name":"orgnr","Type":"Text"}],
				"Contact":[],
				"Pipeline":[{"CustomFieldId":5001,"Name":"orgnr","Type":"Text"}]}`
		},
	}}
	c := newClient(t, api, "U1")

	fields, err := c.ListCustomFields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []crm.CustomField{
		{ID: "3001", Name: "orgnr", Type: "Text", RecordType: "Company"},
		{ID: "5001", Name: "orgnr", Type: "Text", RecordType: "Pipeline"},
	}, fields)
}
