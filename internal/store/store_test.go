package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/hierarchy"
	"planforge/internal/provider"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleProject() *provider.Project {
	forest := []hierarchy.RawTask{
		{
			Title:    "Backend",
			Duration: 5,
			Priority: "high",
			Subtasks: []hierarchy.RawTask{
				{Title: "API design", Duration: 2},
				{Title: "Schema", Duration: 3, Dependencies: []string{"API design"}},
			},
		},
		{Title: "Launch", Duration: 1, Type: "milestone", Deliverable: "Live system"},
	}
	tasks := hierarchy.Build(forest, hierarchy.BuildContext{ProjectID: "proj-1"})
	return &provider.Project{
		ID:          "proj-1",
		Name:        "CRM rollout",
		Description: "Customer platform",
		Tasks:       tasks,
		TeamMembers: []provider.TeamMember{{Name: "Dev", Role: "backend"}},
	}
}

func TestSaveAndGetProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := sampleProject()

	require.NoError(t, s.SaveProject(ctx, in, "anthropic"))

	out, err := s.GetProject(ctx, "proj-1")
	require.NoError(t, err)

	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Description, out.Description)
	assert.Equal(t, in.TeamMembers, out.TeamMembers)
	if diff := cmp.Diff(in.Tasks, out.Tasks); diff != "" {
		t.Errorf("task tree mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSaveProjectReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleProject()
	require.NoError(t, s.SaveProject(ctx, in, "anthropic"))

	in.Name = "CRM rollout v2"
	in.Tasks = hierarchy.Build([]hierarchy.RawTask{{Title: "Only task", Duration: 2}},
		hierarchy.BuildContext{ProjectID: in.ID})
	require.NoError(t, s.SaveProject(ctx, in, "openai"))

	out, err := s.GetProject(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "CRM rollout v2", out.Name)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Only task", out.Tasks[0].Title)
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleProject()
	require.NoError(t, s.SaveProject(ctx, first, "anthropic"))

	second := sampleProject()
	second.ID = "proj-2"
	second.Name = "Second"
	require.NoError(t, s.SaveProject(ctx, second, "gemini"))

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]ProjectSummary{list[0].ID: list[0], list[1].ID: list[1]}
	assert.Equal(t, 5, byID["proj-1"].TaskCount)
	assert.Equal(t, "Second", byID["proj-2"].Name)
	assert.False(t, byID["proj-1"].CreatedAt.IsZero())
}

func TestDeleteProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProject(ctx, sampleProject(), "anthropic"))
	require.NoError(t, s.DeleteProject(ctx, "proj-1"))

	_, err := s.GetProject(ctx, "proj-1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteProject(ctx, "proj-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebuildTreeOrphanBecomesRoot(t *testing.T) {
	flat := []hierarchy.Task{
		{ID: "a", Title: "root", Level: 0},
		{ID: "b", ParentTaskID: "gone", Title: "orphan", Level: 1},
	}
	forest := rebuildTree(flat)
	require.Len(t, forest, 2)
	assert.Equal(t, "orphan", forest[1].Title)
}
