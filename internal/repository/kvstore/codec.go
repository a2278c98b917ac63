package kvstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/mylist/internal/model"
)

// envelope is the on-disk wrapper of every record written by this package.
type envelope struct {
	Schema int             `json:"schema"`
	Data   json.RawMessage `json:"data"`
}

// unwrap splits a stored value into its schema version and payload.
// Anything that is not an envelope is treated as a legacy record.
func unwrap(raw string) (int, []byte, error) {
	b := bytes.TrimSpace([]byte(raw))
	if len(b) == 0 {
		return 0, nil, errors.New("empty record")
	}
	if b[0] == '{' {
		var env struct {
			Schema *int            `json:"schema"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			return 0, nil, err
		}
		if env.Schema != nil {
			if *env.Schema != schemaCurrent {
				return 0, nil, fmt.Errorf("unsupported schema version %d", *env.Schema)
			}
			if len(env.Data) == 0 {
				return 0, nil, errors.New("envelope has no data")
			}
			return *env.Schema, env.Data, nil
		}
	}
	return schemaLegacy, b, nil
}

func wrap(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{Schema: schemaCurrent, Data: data})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func validate(payload []byte, schema interface{ Validate(any) error }) error {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// ---------------------------------------------------------------------------
// accounts
// ---------------------------------------------------------------------------

type legacyUser struct {
	Name      *string `json:"name"`
	Email     string  `json:"email"`
	Birth     *string `json:"birth"`
	Gender    *string `json:"gender"`
	Password  string  `json:"password"`
	ImageData *string `json:"imageData"`
}

func encodeUser(u *model.User) (string, error) {
	return wrap(u)
}

func decodeUser(raw string) (*model.User, error) {
	version, payload, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(payload, userSchemas[version]); err != nil {
		return nil, err
	}

	if version == schemaCurrent {
		var u model.User
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, err
		}
		return &u, nil
	}

	var lu legacyUser
	if err := json.Unmarshal(payload, &lu); err != nil {
		return nil, err
	}
	u := &model.User{
		Name:        deref(lu.Name),
		Email:       lu.Email,
		Birth:       deref(lu.Birth),
		Gender:      model.Gender(deref(lu.Gender)),
		Password:    lu.Password,
		AvatarImage: deref(lu.ImageData),
	}
	if !u.Gender.Valid() {
		u.Gender = model.GenderOther
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// task partitions
// ---------------------------------------------------------------------------

type legacyTask struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Desc          *string    `json:"desc"`
	Date          *string    `json:"date"`
	Time          *string    `json:"time"`
	Reminder      *bool      `json:"reminder"`
	ReminderValue *int       `json:"reminderValue"`
	Done          *bool      `json:"done"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt"`
}

func encodeTasks(tasks []model.Task) (string, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return wrap(tasks)
}

func decodeTasks(raw string) ([]model.Task, error) {
	version, payload, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(payload, taskSchemas[version]); err != nil {
		return nil, err
	}

	var tasks []model.Task
	if version == schemaCurrent {
		if err := json.Unmarshal(payload, &tasks); err != nil {
			return nil, err
		}
	} else {
		var legacy []legacyTask
		if err := json.Unmarshal(payload, &legacy); err != nil {
			return nil, err
		}
		tasks = make([]model.Task, 0, len(legacy))
		for _, lt := range legacy {
			tasks = append(tasks, upgradeTask(lt))
		}
	}

	if err := checkTasks(tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func upgradeTask(lt legacyTask) model.Task {
	t := model.Task{
		ID:              lt.ID,
		Title:           lt.Title,
		Description:     deref(lt.Desc),
		Date:            deref(lt.Date),
		Time:            deref(lt.Time),
		ReminderEnabled: lt.Reminder != nil && *lt.Reminder,
		Done:            lt.Done != nil && *lt.Done,
		CreatedAt:       lt.CreatedAt,
		CompletedAt:     lt.CompletedAt,
	}
	if t.ReminderEnabled {
		t.ReminderOffsetMinutes = model.DefaultReminderOffset
		if lt.ReminderValue != nil && *lt.ReminderValue > 0 {
			t.ReminderOffsetMinutes = *lt.ReminderValue
		}
	}
	return t
}

// checkTasks enforces the invariants a JSON Schema cannot express.
func checkTasks(tasks []model.Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("task %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.Done != (t.CompletedAt != nil) {
			return fmt.Errorf("task %d (%s): done=%v does not match completedAt", i, t.ID, t.Done)
		}
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
