package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"swiftchat/models"
)

// Store wraps the SQL database holding users and the message log.
type Store struct {
	db     *sql.DB
	driver string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id INTEGER NOT NULL,
	receiver_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL,
	FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (receiver_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	sender_id BIGINT NOT NULL,
	receiver_id BIGINT NOT NULL,
	content TEXT NOT NULL,
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL,
	FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (receiver_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
`

// Open connects to the database named by databaseURL and creates the schema.
// URLs with a postgres scheme use lib/pq; everything else is treated as a
// SQLite path.
func Open(databaseURL string) (*Store, error) {
	driver := "sqlite3"
	dsn := databaseURL
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "postgres"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db, driver: driver}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return store, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	_, err := s.db.Exec(schema)
	return err
}

// rebind rewrites ? placeholders to $N for the postgres backend.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// User queries

// CreateUser inserts a new user and returns the stored row.
func (s *Store) CreateUser(username, email, password string) (*models.User, error) {
	now := time.Now().UTC()
	if s.driver == "postgres" {
		var id int64
		err := s.db.QueryRow(
			"INSERT INTO users (username, email, password, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
			username, email, password, now,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		return s.GetUserByID(id)
	}

	result, err := s.db.Exec(
		"INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?)",
		username, email, password, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(id)
}

// GetUserByID retrieves a user by their ID
func (s *Store) GetUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, username, email, password, avatar, bio, created_at FROM users WHERE id = ?"),
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Avatar, &user.Bio, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, username, email, password, avatar, bio, created_at FROM users WHERE username = ?"),
		username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Avatar, &user.Bio, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, username, email, password, avatar, bio, created_at FROM users WHERE email = ?"),
		email,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Avatar, &user.Bio, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SearchUsers finds users whose username or email contains query, excluding
// the caller.
func (s *Store) SearchUsers(query string, currentUserID int64) ([]models.UserResponse, error) {
	rows, err := s.db.Query(
		s.rebind(`SELECT id, username, email, avatar, bio, created_at FROM users
		WHERE (username LIKE ? OR email LIKE ?) AND id != ? ORDER BY username LIMIT 20`),
		"%"+query+"%", "%"+query+"%", currentUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserResponses(rows)
}

// ListUsers returns every user except the caller.
func (s *Store) ListUsers(currentUserID int64) ([]models.UserResponse, error) {
	rows, err := s.db.Query(
		s.rebind("SELECT id, username, email, avatar, bio, created_at FROM users WHERE id != ? ORDER BY username"),
		currentUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserResponses(rows)
}

func scanUserResponses(rows *sql.Rows) ([]models.UserResponse, error) {
	var users []models.UserResponse
	for rows.Next() {
		var user models.UserResponse
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Avatar, &user.Bio, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Message queries

// CreateMessage appends a new unread message to the log.
func (s *Store) CreateMessage(senderID, receiverID int64, content string) (*models.Message, error) {
	now := time.Now().UTC()
	if s.driver == "postgres" {
		var id int64
		err := s.db.QueryRow(
			"INSERT INTO messages (sender_id, receiver_id, content, read, created_at) VALUES ($1, $2, $3, FALSE, $4) RETURNING id",
			senderID, receiverID, content, now,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		return s.GetMessageByID(id)
	}

	result, err := s.db.Exec(
		"INSERT INTO messages (sender_id, receiver_id, content, read, created_at) VALUES (?, ?, ?, FALSE, ?)",
		senderID, receiverID, content, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetMessageByID(id)
}

// GetMessageByID retrieves a message by its ID
func (s *Store) GetMessageByID(id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, sender_id, receiver_id, content, read, created_at FROM messages WHERE id = ?"),
		id,
	).Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Read, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MessagesBetween returns one page of the conversation between two users,
// paginated newest-first, with the returned page in chronological order.
func (s *Store) MessagesBetween(userID1, userID2 int64, limit, offset int) ([]models.Message, error) {
	rows, err := s.db.Query(
		s.rebind(`SELECT id, sender_id, receiver_id, content, read, created_at FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`),
		userID1, userID2, userID2, userID1, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MessagesForUser returns the full log of messages the user sent or received,
// oldest first.
func (s *Store) MessagesForUser(userID int64) ([]models.Message, error) {
	rows, err := s.db.Query(
		s.rebind(`SELECT id, sender_id, receiver_id, content, read, created_at FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at ASC, id ASC`),
		userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkRead flips every unread message from senderID to receiverID to read.
// Applying it twice has the same effect as once.
func (s *Store) MarkRead(senderID, receiverID int64) error {
	_, err := s.db.Exec(
		s.rebind("UPDATE messages SET read = TRUE WHERE sender_id = ? AND receiver_id = ? AND read = FALSE"),
		senderID, receiverID,
	)
	return err
}

// UnreadCount reports how many messages from senderID to receiverID are unread.
func (s *Store) UnreadCount(senderID, receiverID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		s.rebind("SELECT COUNT(*) FROM messages WHERE sender_id = ? AND receiver_id = ? AND read = FALSE"),
		senderID, receiverID,
	).Scan(&count)
	return count, err
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
