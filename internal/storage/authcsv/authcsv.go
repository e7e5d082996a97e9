package authcsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
)

const (
	header   = "user_id,user_firstName,role\n"
	RoleUser = "User"
)

// List is the durable authorization list: one CSV row per user.
// Grants append a row; revocations rewrite the whole file.
type List struct {
	path string
}

func New(path string) (*List, error) {
	const op = "storage.authcsv.New"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return nil, fmt.Errorf("%s: create list: %w", op, err)
		}
	}

	return &List{path: path}, nil
}

// All returns every row of the list, header excluded.
func (l *List) All() ([]models.AuthUser, error) {
	const op = "storage.authcsv.All"

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: read csv: %w", op, err)
	}

	users := make([]models.AuthUser, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) != 3 {
			return nil, fmt.Errorf("%s: malformed row %d", op, i)
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad user id %q: %w", op, row[0], err)
		}
		users = append(users, models.AuthUser{ID: id, FirstName: row[1], Role: row[2]})
	}

	return users, nil
}

// AuthorizedIDs returns the ids of users whose role grants access.
func (l *List) AuthorizedIDs() ([]int64, error) {
	users, err := l.All()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		if u.Role == RoleUser {
			ids = append(ids, u.ID)
		}
	}

	return ids, nil
}

// Append grants access by appending a row with the User role.
func (l *List) Append(userID int64, firstName string) error {
	const op = "storage.authcsv.Append"

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d,%s,%s\n", userID, firstName, RoleUser); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Remove revokes access by rewriting the list without the user's row.
func (l *List) Remove(userID int64) error {
	const op = "storage.authcsv.Remove"

	users, err := l.All()
	if err != nil {
		return err
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		if _, err := fmt.Fprintf(f, "%d,%s,%s\n", u.ID, u.FirstName, u.Role); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}
