package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation is a single field-level schema failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a payload, not just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has at least one violation.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// validate uses gin's "binding" tag so the struct tags read the same as request models.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate decodes raw into the variant named by kind.
//
// kind is the type implied by the endpoint. A payload without event_type takes
// kind; a payload naming another variant is rejected. Missing or null optional
// fields are left unset, and a missing quantity defaults to 1.
func Validate(kind EventType, raw []byte) (Event, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, &ValidationError{Violations: []Violation{{Field: "body", Message: "must be a JSON object"}}}
	}

	d := &fieldDecoder{raw: obj, bad: map[string]bool{}}

	switch kind {
	case EventInstall:
		e := InstallEvent{}
		d.base(&e.BaseEvent, kind)
		d.optional("campaign", &e.Campaign)
		d.optional("ad_group", &e.AdGroup)
		d.optional("creative", &e.Creative)
		d.check(&e)
		if err := d.err(); err != nil {
			return nil, err
		}
		return e, nil

	case EventPurchase:
		e := PurchaseEvent{}
		d.base(&e.BaseEvent, kind)
		d.required("product_id", &e.ProductID)
		if !d.decode("quantity", &e.Quantity) {
			e.Quantity = 1
		}
		d.required("amount_micros", &e.AmountMicros)
		d.required("currency", &e.Currency)
		d.optional("transaction_id", &e.TransactionID)
		d.optional("store", &e.Store)
		d.check(&e)
		if err := d.err(); err != nil {
			return nil, err
		}
		e.Currency = strings.ToUpper(e.Currency)
		return e, nil
	}

	return nil, &ValidationError{Violations: []Violation{{Field: "event_type", Message: fmt.Sprintf("unknown event type %q", kind)}}}
}

// fieldDecoder decodes one field at a time so a bad field does not hide the others.
type fieldDecoder struct {
	raw        map[string]json.RawMessage
	bad        map[string]bool
	violations []Violation
}

func (d *fieldDecoder) base(b *BaseEvent, kind EventType) {
	var et string
	if d.decode("event_type", &et) && !d.bad["event_type"] {
		b.EventType = EventType(et)
		if b.EventType != kind && (b.EventType == EventInstall || b.EventType == EventPurchase) {
			d.fail("event_type", fmt.Sprintf("must be %q for this endpoint", kind))
		}
	} else if !d.bad["event_type"] {
		b.EventType = kind
	}

	d.required("event_id", &b.EventID)
	d.required("occurred_at", &b.OccurredAt)
	d.required("player_id", &b.PlayerID)
	d.required("app_id", &b.AppID)
	d.required("platform", &b.Platform)
	d.optional("session_id", &b.SessionID)
	d.optional("device_id", &b.DeviceID)
	d.optional("country", &b.Country)
	d.optional("properties", &b.Properties)
}

func (d *fieldDecoder) required(name string, dst any) {
	if !d.decode(name, dst) {
		d.fail(name, "field required")
	}
}

func (d *fieldDecoder) optional(name string, dst any) {
	d.decode(name, dst)
}

// decode reports whether name was present with a non-null value.
func (d *fieldDecoder) decode(name string, dst any) bool {
	r, ok := d.raw[name]
	if !ok || bytes.Equal(bytes.TrimSpace(r), []byte("null")) {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(r))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		d.fail(name, typeMessage(dst))
	}
	return true
}

// check runs the tag constraints, skipping fields that already failed decoding.
func (d *fieldDecoder) check(v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		d.fail("body", err.Error())
		return
	}
	for _, fe := range verrs {
		if d.bad[fe.Field()] {
			continue
		}
		d.fail(fe.Field(), constraintMessage(fe))
	}
}

func (d *fieldDecoder) fail(field, msg string) {
	d.bad[field] = true
	d.violations = append(d.violations, Violation{Field: field, Message: msg})
}

func (d *fieldDecoder) err() error {
	if len(d.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: d.violations}
}

func typeMessage(dst any) string {
	switch dst.(type) {
	case *int, *int64:
		return "must be an integer"
	case *Properties:
		return "must be an object"
	default:
		return "must be a string"
	}
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " constraint"
	}
}
