package lacrm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"salgsmotor/internal/crm"
)

// contact is a SearchContacts/GetContact row. Company cards have IsCompany
// set and carry the company name in CompanyName or FirstName.
type contact struct {
	ContactID    flexString   `json:"ContactId"`
	IsCompany    flexString   `json:"IsCompany"`
	CompanyName  string       `json:"CompanyName"`
	FirstName    string       `json:"FirstName"`
	LastName     string       `json:"LastName"`
	Email        textList     `json:"Email"`
	Phone        textList     `json:"Phone"`
	Website      textList     `json:"Website"`
	CustomFields customFields `json:"CustomFields"`
}

func (c contact) isCompany() bool {
	switch strings.ToLower(string(c.IsCompany)) {
	case "1", "true":
		return true
	}
	return false
}

func (c contact) record() crm.Record {
	rec := crm.Record{
		ID:          string(c.ContactID),
		Kind:        crm.KindContact,
		Name:        strings.TrimSpace(c.FirstName + " " + c.LastName),
		CompanyName: strings.TrimSpace(c.CompanyName),
		Email:       c.Email.first(),
		Phone:       c.Phone.first(),
		Website:     c.Website.first(),
		Fields:      c.CustomFields.values,
	}
	if c.isCompany() {
		rec.Kind = crm.KindCompany
		rec.Name = strings.TrimSpace(c.FirstName)
		if rec.Name == "" {
			rec.Name = rec.CompanyName
		}
	}
	if rec.Fields == nil {
		rec.Fields = map[crm.FieldID]string{}
	}
	return rec
}

// flexString accepts JSON strings, numbers and booleans.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexString(strconv.FormatBool(v))
	return nil
}

// textList accepts a plain string or a list of {"Text": ...} objects.
type textList []string

func (t *textList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = textList{s}
		return nil
	}
	var items []struct {
		Text string `json:"Text"`
	}
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(textList, 0, len(items))
	for _, it := range items {
		out = append(out, it.Text)
	}
	*t = out
	return nil
}

func (t textList) first() string {
	for _, v := range t {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// customFields accepts both a list of {"FieldId", "Value"} pairs and an
// object keyed by field id. Non-string values keep their JSON text.
type customFields struct {
	values map[crm.FieldID]string
}

func (c *customFields) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	c.values = map[crm.FieldID]string{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		var pairs []struct {
			FieldID flexString      `json:"FieldId"`
			Value   json.RawMessage `json:"Value"`
		}
		if err := json.Unmarshal(b, &pairs); err != nil {
			return err
		}
		for _, p := range pairs {
			c.values[crm.FieldID(p.FieldID)] = rawText(p.Value)
		}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	for id, v := range obj {
		c.values[crm.FieldID(id)] = rawText(v)
	}
	return nil
}

func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	return string(v)
}
