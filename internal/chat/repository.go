package chat

import (
	"context"
	"database/sql"
	"errors"
)

const messageColumns = "id, name, text, room, user_id, file_url, file_type, created_at"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m                       Message
		text, fileURL, fileType sql.NullString
		userID                  sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.Name, &text, &m.Room, &userID, &fileURL, &fileType, &m.CreatedAt); err != nil {
		return nil, err
	}
	if text.Valid {
		m.Text = &text.String
	}
	if fileURL.Valid {
		m.FileURL = &fileURL.String
	}
	if fileType.Valid {
		m.FileType = &fileType.String
	}
	if userID.Valid {
		id := int(userID.Int64)
		m.UserID = &id
	}
	return &m, nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *Repository) Append(ctx context.Context, nm *NewMessage) (*Message, error) {
	query := `INSERT INTO messages (name, text, room, user_id, file_url, file_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + messageColumns

	row := r.db.QueryRowContext(ctx, query,
		nm.Name, nullable(nm.Text), nm.Room, nm.UserID, nullable(nm.FileURL), nullable(nm.FileType))
	return scanMessage(row)
}

func (r *Repository) ListByRoom(ctx context.Context, room string) ([]*Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE room = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// UpdateText changes the text of a message owned by ownerID.
func (r *Repository) UpdateText(ctx context.Context, id, ownerID int, text string) (*Message, error) {
	query := `UPDATE messages SET text = $1
		WHERE id = $2 AND user_id = $3
		RETURNING ` + messageColumns

	m, err := scanMessage(r.db.QueryRowContext(ctx, query, text, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// Delete hard-deletes a message owned by ownerID.
func (r *Repository) Delete(ctx context.Context, id, ownerID int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
