package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"studymate/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func seedQuiz(t *testing.T, db *gorm.DB, userID uint) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{
		UserID:     userID,
		Name:       "Cells Quiz",
		Difficulty: "medium",
		Questions: datatypes.NewJSONType(model.QuizResult{Quiz: []model.QuizQuestion{
			{Question: "Q", Options: []string{"A", "B"}, CorrectAnswerIndex: 1},
		}}),
	}
	require.NoError(t, NewQuizRepository(db).Create(context.Background(), quiz))
	return quiz
}
