package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
)

func sampleStages() []domain.Stage {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []domain.Stage{
		{
			ID:         uuid.New(),
			Type:       domain.StageTypeClass,
			SequenceID: 1,
			Data: &domain.ClassData{
				Conditions: []domain.Condition{
					{ID: uuid.New(), Sequence: 1, Status: domain.StatusNotStarted},
					{
						ID:             uuid.New(),
						Sequence:       2,
						Status:         domain.StatusCompleted,
						CompletionTime: &now,
						Result:         &domain.ConditionResult{Passed: true, Comment: "ok"},
					},
				},
			},
		},
		{
			ID:         uuid.New(),
			Type:       domain.StageTypeClass,
			SequenceID: 2,
			Data:       &domain.ClassData{},
		},
		{
			ID:         uuid.New(),
			Type:       domain.StageTypeOlb,
			SequenceID: 3,
			Data:       &domain.OlbData{OperationData: domain.OperationData{Operation: "burn-in", Status: domain.StatusRunning}},
		},
		{
			ID:         uuid.New(),
			Type:       domain.StageTypePpv,
			SequenceID: 4,
			Data:       &domain.PpvData{OperationData: domain.OperationData{Operation: "verify", Status: domain.StatusPaused, StatusChangeComment: "hold"}},
		},
		{
			ID:         uuid.New(),
			Type:       domain.StageTypeMaestro,
			SequenceID: 5,
			Data:       &domain.MaestroData{OperationData: domain.OperationData{Operation: "bench", Status: domain.StatusNotStarted}},
		},
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	for _, stage := range sampleStages() {
		record := RecordFromStage(&stage)

		data, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("%s: marshal: %v", stage.Type, err)
		}

		var decoded Record
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%s: unmarshal: %v", stage.Type, err)
		}

		if !reflect.DeepEqual(record, decoded) {
			t.Errorf("%s: round trip mismatch:\n  in:  %+v\n  out: %+v", stage.Type, record, decoded)
		}
	}
}

func TestOrchestratorCreationRequest_RoundTrip(t *testing.T) {
	for _, stage := range sampleStages() {
		req := OrchestratorRequestFromStage(&stage)

		data, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("%s: marshal: %v", stage.Type, err)
		}

		var decoded OrchestratorCreationRequest
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%s: unmarshal: %v", stage.Type, err)
		}

		if !reflect.DeepEqual(req, decoded) {
			t.Errorf("%s: round trip mismatch", stage.Type)
		}
	}
}

func TestCreationRequest_RoundTrip(t *testing.T) {
	req := CreationRequest{
		StageType:  domain.StageTypeClass,
		SequenceID: 7,
		Data: &domain.ClassData{
			Conditions: []domain.Condition{{ID: uuid.New(), Sequence: 1, Status: domain.StatusNotStarted}},
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded CreationRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(req, decoded) {
		t.Error("round trip mismatch")
	}
}

func TestRecord_Marshal_FieldOrder(t *testing.T) {
	stage := sampleStages()[2]
	data, err := json.Marshal(RecordFromStage(&stage))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(data)
	order := []string{`"Id"`, `"StageType"`, `"SequenceId"`, `"StageData"`}
	last := -1
	for _, name := range order {
		idx := strings.Index(s, name)
		if idx < 0 {
			t.Fatalf("field %s missing in %s", name, s)
		}
		if idx < last {
			t.Errorf("field %s out of order in %s", name, s)
		}
		last = idx
	}
}

func TestRecord_Marshal_UnknownStageType(t *testing.T) {
	record := Record{
		ID:         uuid.New(),
		StageType:  domain.StageType(42),
		SequenceID: 1,
		Data:       &domain.OlbData{},
	}

	_, err := json.Marshal(record)
	if err == nil {
		t.Fatal("expected error for unknown stage type")
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("error should name the offending value: %v", err)
	}
}

func TestRecord_Unmarshal_NotAnObject(t *testing.T) {
	inputs := []string{`[1,2]`, `"text"`, `42`, `true`}
	for _, input := range inputs {
		var record Record
		err := json.Unmarshal([]byte(input), &record)
		if err == nil {
			t.Errorf("%s: expected error", input)
			continue
		}
		if !strings.Contains(err.Error(), ErrNotStartOfObject.Error()) {
			t.Errorf("%s: expected start-of-object error, got %v", input, err)
		}
	}
}

func TestRecord_Unmarshal_MissingFieldPriority(t *testing.T) {
	id := uuid.New()
	olb := `{"Operation":"burn-in","process_status":"RUNNING"}`

	tests := []struct {
		name  string
		input string
		field string
	}{
		{
			// Id wins over StageType when both are missing
			name:  "id before stage type",
			input: `{"SequenceId":3,"StageData":` + olb + `}`,
			field: "Id",
		},
		{
			name:  "sequence id",
			input: fmt.Sprintf(`{"Id":%q,"StageType":2,"StageData":%s}`, id, olb),
			field: "SequenceId",
		},
		{
			name:  "stage type",
			input: fmt.Sprintf(`{"Id":%q,"SequenceId":3,"StageData":%s}`, id, olb),
			field: "StageType",
		},
		{
			name:  "stage data",
			input: fmt.Sprintf(`{"Id":%q,"SequenceId":3,"StageType":2}`, id),
			field: "StageData",
		},
		{
			name:  "null counts as missing",
			input: `{"Id":null,"SequenceId":3,"StageType":2,"StageData":` + olb + `}`,
			field: "Id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record Record
			err := json.Unmarshal([]byte(tt.input), &record)
			if err == nil {
				t.Fatal("expected error")
			}
			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if missing.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, missing.Field)
			}
			if want := "Could not get " + tt.field; err.Error() != want {
				t.Errorf("expected message %q, got %q", want, err.Error())
			}
		})
	}
}

func TestRecord_Unmarshal_FieldOrderIndependent(t *testing.T) {
	id := uuid.New()
	input := fmt.Sprintf(`{"StageData":{"Operation":"verify","process_status":"PAUSED"},"SequenceId":4,"Id":%q,"StageType":3}`, id)

	var record Record
	if err := json.Unmarshal([]byte(input), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.StageType != domain.StageTypePpv {
		t.Errorf("expected Ppv, got %s", record.StageType)
	}
	ppv, ok := record.Data.(*domain.PpvData)
	if !ok {
		t.Fatalf("expected *PpvData, got %T", record.Data)
	}
	if ppv.Operation != "verify" || ppv.Status != domain.StatusPaused {
		t.Errorf("unexpected stage data: %+v", ppv)
	}
}

func TestRecord_Unmarshal_UnknownStageType(t *testing.T) {
	id := uuid.New()
	for _, raw := range []string{`9`, `"Olb"`} {
		input := fmt.Sprintf(`{"Id":%q,"SequenceId":1,"StageType":%s,"StageData":{}}`, id, raw)
		var record Record
		err := json.Unmarshal([]byte(input), &record)
		if err == nil {
			t.Fatalf("StageType %s: expected error", raw)
		}
		if !errors.Is(err, ErrUnknownStageType) {
			t.Errorf("StageType %s: expected unknown stage type error, got %v", raw, err)
		}
		if !strings.Contains(err.Error(), strings.Trim(raw, `"`)) {
			t.Errorf("StageType %s: error should name the value, got %v", raw, err)
		}
	}
}

func TestOrchestratorCreationRequest_MissingStageID(t *testing.T) {
	// StageId is mandatory for the orchestrator shape, after SequenceId in priority
	input := `{"StageType":2,"StageData":{"Operation":"burn-in"}}`
	var req OrchestratorCreationRequest
	err := json.Unmarshal([]byte(input), &req)

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != "SequenceId" {
		t.Errorf("expected SequenceId first, got %s", missing.Field)
	}

	input = `{"StageType":2,"SequenceId":1,"StageData":{"Operation":"burn-in"}}`
	err = json.Unmarshal([]byte(input), &req)
	if !errors.As(err, &missing) || missing.Field != "StageId" {
		t.Errorf("expected missing StageId, got %v", err)
	}
}

func TestCreationRequest_ToStage(t *testing.T) {
	req := CreationRequest{
		StageType:  domain.StageTypeOlb,
		SequenceID: 2,
		Data:       &domain.OlbData{OperationData: domain.OperationData{Operation: "burn-in", Status: domain.StatusNotStarted}},
	}

	stage := req.ToStage()
	if stage.ID == uuid.Nil {
		t.Error("ToStage should assign an id")
	}
	if stage.Type != domain.StageTypeOlb || stage.SequenceID != 2 {
		t.Errorf("unexpected stage: %+v", stage)
	}
}
