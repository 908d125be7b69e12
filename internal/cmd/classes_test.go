package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/errors"
)

func TestClassesCreate_Teacher(t *testing.T) {
	h := newHarness(t)
	h.signIn("TEACHER")

	out, err := h.run("classes", "create", "--name", "Biology 101")
	require.NoError(t, err)
	assert.Contains(t, out, `Created class "Biology 101" (new-class)`)
	assert.Contains(t, out, "memora classes join JOIN42")
}

func TestClassesTeacherCommands_RejectStudents(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")

	tests := [][]string{
		{"classes", "create", "--name", "x"},
		{"classes", "delete", "c1", "--yes"},
		{"classes", "assign", "c1", "d1"},
		{"classes", "students", "c1"},
	}
	for _, args := range tests {
		t.Run(args[1], func(t *testing.T) {
			_, err := h.run(args...)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeRoleMismatch), "got %v", err)
			assert.Contains(t, err.Error(), "student dashboard")
		})
	}
	assert.False(t, h.backend.sent("POST /classes"))
	assert.False(t, h.backend.sent("DELETE /classes/c1"))
}

func TestClassesJoin(t *testing.T) {
	h := newHarness(t)
	h.signIn("student")

	out, err := h.run("classes", "join", "ABC123")
	require.NoError(t, err)
	assert.Contains(t, out, "Joined class with code ABC123.")
	h.backend.with(func() {
		assert.Equal(t, []string{"ABC123"}, h.backend.joined)
	})
}

func TestClassesJoin_RejectsTeachers(t *testing.T) {
	h := newHarness(t)
	h.signIn("TEACHER")

	_, err := h.run("classes", "join", "ABC123")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoleMismatch))
	assert.False(t, h.backend.sent("POST /classes/join/ABC123"))
}

func TestClassesRoleUnresolved(t *testing.T) {
	h := newHarness(t)
	// Signed in, but the backend has no profile for u1.
	h.auth.Publish(principal("u1", "ada@example.com"))

	_, err := h.run("classes", "join", "ABC123")
	require.Error(t, err)
	assert.False(t, errors.HasCode(err, errors.ErrCodeRoleMismatch))
	assert.False(t, h.backend.sent("POST /classes/join/ABC123"))
}

func TestClassesStudentsAndAssign(t *testing.T) {
	h := newHarness(t)
	h.signIn("TEACHER")
	h.backend.with(func() {
		h.backend.students = []api.Student{{UID: "s1", Username: "lin", Email: "lin@example.com"}}
	})

	out, err := h.run("classes", "students", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "lin@example.com")

	out, err = h.run("classes", "assign", "c1", "d9")
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned deck d9 to class c1.")
	h.backend.with(func() {
		assert.Equal(t, []string{"c1/d9"}, h.backend.assigned)
	})
}

func TestClassesList(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	h.backend.with(func() {
		h.backend.classes = []api.Class{{ID: "c1", Name: "Biology", Code: "B1", StudentIDs: []string{"u1", "u2"}}}
	})

	out, err := h.run("classes", "list")
	require.NoError(t, err)
	rows := lines(out)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "Biology")
	assert.Contains(t, rows[1], "B1")
}

func TestFolders(t *testing.T) {
	h := newHarness(t)
	h.signIn("STUDENT")
	h.backend.with(func() {
		h.backend.folders = []api.Folder{{ID: "f1", Name: "Semester 1"}, {ID: "f2", Name: "Semester 2"}}
	})

	out, err := h.run("folders", "add-deck", "f1", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Added deck d1 to folder f1.")

	out, err = h.run("folders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Semester 1")

	out, err = h.run("folders", "delete", "f2", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted folder f2 (1 left)")
	h.backend.with(func() {
		require.Len(t, h.backend.folders, 1)
		assert.Equal(t, []string{"d1"}, h.backend.folders[0].DeckIDs)
	})
}
