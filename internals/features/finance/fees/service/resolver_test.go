package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "feeledger_backend/internals/databases/inmem"
	"feeledger_backend/internals/features/finance/fees/dto"
	"feeledger_backend/internals/features/finance/fees/model"
	ft "feeledger_backend/internals/features/finance/financetest"
	"feeledger_backend/internals/helpers/apperror"
)

type resolverFixture struct {
	db       *inmemdb.DB
	resolver *Resolver
	student  uuid.UUID
	class    uuid.UUID
}

func newResolverFixture(t *testing.T) resolverFixture {
	t.Helper()
	db := inmemdb.Open()
	student := ft.AddStudent(t, db, "Aisyah")
	class := ft.AddClass(t, db, "7A")
	ft.Enroll(t, db, student, class, ft.Date(2024, 7, 15))
	return resolverFixture{
		db:       db,
		resolver: NewResolver(NewMemoryStore(db), "IDR"),
		student:  student,
		class:    class,
	}
}

func TestResolveFlatFeeFallback(t *testing.T) {
	f := newResolverFixture(t)
	def := ft.AddDefinition(t, f.db, ft.Flat("Building fee", "5000"))
	ft.AssignToClass(t, f.db, def.FeeDefinitionID, f.class, 0, nil, nil)

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{StudentID: f.student})
	require.NoError(t, err)

	require.Len(t, res.LineItems, 1)
	item := res.LineItems[0]
	assert.Equal(t, dto.LineItemFlat, item.Type)
	assert.Equal(t, "Building fee", item.FeeName)
	assert.True(t, item.Amount.Equal(ft.D("5000")))
	assert.Nil(t, item.Installment)
	assert.Equal(t, &f.class, item.Source.ClassID)
	assert.True(t, res.TotalDueNow.Equal(ft.D("5000")))
	assert.True(t, res.TotalUpcoming.IsZero())
	assert.Equal(t, "IDR", res.Currency)
}

func TestResolveDateWindowInclusivity(t *testing.T) {
	f := newResolverFixture(t)
	open := ft.AddDefinition(t, f.db, ft.Flat("Open window", "100"))
	late := ft.AddDefinition(t, f.db, ft.Flat("Starts in June", "200"))
	ft.AssignToClass(t, f.db, open.FeeDefinitionID, f.class, 0, nil, nil)
	ft.AssignToClass(t, f.db, late.FeeDefinitionID, f.class, 0, ft.DatePtr(2024, 6, 1), nil)

	tests := []struct {
		name      string
		start     *time.Time
		end       *time.Time
		wantNames []string
	}{
		{"no window keeps everything", nil, nil, []string{"Open window", "Starts in June"}},
		{"window ending before start excludes", nil, ft.DatePtr(2024, 5, 1), []string{"Open window"}},
		{"window touching start day includes", nil, ft.DatePtr(2024, 6, 1), []string{"Open window", "Starts in June"}},
		{"only lower bound", ft.DatePtr(2025, 1, 1), nil, []string{"Open window", "Starts in June"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.resolver.Resolve(context.Background(), ResolveInput{StudentID: f.student, PeriodStart: tc.start, PeriodEnd: tc.end})
			require.NoError(t, err)
			names := make([]string, 0, len(res.LineItems))
			for _, it := range res.LineItems {
				names = append(names, it.FeeName)
			}
			assert.ElementsMatch(t, tc.wantNames, names)
		})
	}
}

func TestResolveAssignmentEndingBeforeWindow(t *testing.T) {
	f := newResolverFixture(t)
	def := ft.AddDefinition(t, f.db, ft.Flat("Old fee", "100"))
	ft.AssignToClass(t, f.db, def.FeeDefinitionID, f.class, 0, ft.DatePtr(2023, 1, 1), ft.DatePtr(2023, 12, 31))

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{StudentID: f.student, PeriodStart: ft.DatePtr(2024, 1, 1)})
	require.NoError(t, err)
	assert.Empty(t, res.LineItems)
	assert.True(t, res.TotalDueNow.IsZero())
}

func TestResolveInstallmentsFilteredByWindow(t *testing.T) {
	f := newResolverFixture(t)
	def := ft.Flat("Tuition", "3000")
	def.FeeDefinitionInstallments = []model.FeeInstallment{
		ft.Installment(3, "Term 3", "1000", ft.DatePtr(2025, 4, 1)),
		ft.Installment(1, "Term 1", "1000", ft.DatePtr(2024, 8, 1)),
		ft.Installment(2, "Term 2", "1000", ft.DatePtr(2025, 1, 1)),
		ft.Installment(4, "Books", "250", nil),
	}
	def = ft.AddDefinition(t, f.db, def)
	ft.AssignToClass(t, f.db, def.FeeDefinitionID, f.class, 0, nil, nil)

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{
		StudentID:   f.student,
		PeriodStart: ft.DatePtr(2024, 7, 1),
		PeriodEnd:   ft.DatePtr(2024, 12, 31),
	})
	require.NoError(t, err)

	require.Len(t, res.LineItems, 2)
	assert.Equal(t, "Term 1", res.LineItems[0].Installment.Label)
	assert.Equal(t, 1, res.LineItems[0].Installment.Index)
	assert.Equal(t, "Books", res.LineItems[1].Installment.Label)
	assert.Nil(t, res.LineItems[1].Installment.DueDate)
	assert.True(t, res.TotalDueNow.Equal(ft.D("1250")))
	assert.True(t, res.TotalUpcoming.Equal(ft.D("2000")), "terms 2 and 3 fall after the window")
}

func TestResolveUnionOrderedByPriorityThenID(t *testing.T) {
	f := newResolverFixture(t)
	a := ft.AddDefinition(t, f.db, ft.Flat("A", "10"))
	b := ft.AddDefinition(t, f.db, ft.Flat("B", "20"))
	c := ft.AddDefinition(t, f.db, ft.Flat("C", "30"))
	ft.AssignToClass(t, f.db, a.FeeDefinitionID, f.class, 5, nil, nil)
	ft.AssignToStudent(t, f.db, b.FeeDefinitionID, f.student, 1, nil, nil)
	ft.AssignToClass(t, f.db, c.FeeDefinitionID, f.class, 1, nil, nil)

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{StudentID: f.student})
	require.NoError(t, err)
	require.Len(t, res.LineItems, 3)

	// priority 1 pair first, tie broken by assignment id
	first, second := res.LineItems[0], res.LineItems[1]
	assert.ElementsMatch(t, []string{"B", "C"}, []string{first.FeeName, second.FeeName})
	assert.Less(t, first.Source.AssignmentID.String(), second.Source.AssignmentID.String())
	assert.Equal(t, "A", res.LineItems[2].FeeName)
	assert.True(t, res.TotalDueNow.Equal(ft.D("60")))
}

func TestResolveIgnoresOtherTargets(t *testing.T) {
	f := newResolverFixture(t)
	otherClass := ft.AddClass(t, f.db, "8B")
	otherStudent := ft.AddStudent(t, f.db, "Bima")
	def := ft.AddDefinition(t, f.db, ft.Flat("Lab fee", "75"))
	ft.AssignToClass(t, f.db, def.FeeDefinitionID, otherClass, 0, nil, nil)
	ft.AssignToStudent(t, f.db, def.FeeDefinitionID, otherStudent, 0, nil, nil)

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{StudentID: f.student})
	require.NoError(t, err)
	assert.Empty(t, res.LineItems)
	assert.True(t, res.TotalDueNow.IsZero())
	assert.Equal(t, "IDR", res.Currency)
}

func TestResolveWithoutActiveEnrollmentUsesStudentAssignmentsOnly(t *testing.T) {
	db := inmemdb.Open()
	student := ft.AddStudent(t, db, "Citra")
	class := ft.AddClass(t, db, "9C")
	classFee := ft.AddDefinition(t, db, ft.Flat("Class fee", "100"))
	ownFee := ft.AddDefinition(t, db, ft.Flat("Own fee", "40"))
	ft.AssignToClass(t, db, classFee.FeeDefinitionID, class, 0, nil, nil)
	ft.AssignToStudent(t, db, ownFee.FeeDefinitionID, student, 0, nil, nil)

	res, err := NewResolver(NewMemoryStore(db), "IDR").Resolve(context.Background(), ResolveInput{StudentID: student})
	require.NoError(t, err)
	require.Len(t, res.LineItems, 1)
	assert.Equal(t, "Own fee", res.LineItems[0].FeeName)
	assert.Nil(t, res.ClassID)
}

func TestResolveErrors(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(context.Background(), ResolveInput{StudentID: uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.resolver.Resolve(context.Background(), ResolveInput{
		StudentID:   f.student,
		PeriodStart: ft.DatePtr(2024, 2, 1),
		PeriodEnd:   ft.DatePtr(2024, 1, 1),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	usd := ft.Flat("Exchange trip", "300")
	usd.FeeDefinitionCurrency = "USD"
	usd = ft.AddDefinition(t, f.db, usd)
	idr := ft.AddDefinition(t, f.db, ft.Flat("Tuition", "100"))
	ft.AssignToClass(t, f.db, usd.FeeDefinitionID, f.class, 0, nil, nil)
	ft.AssignToClass(t, f.db, idr.FeeDefinitionID, f.class, 0, nil, nil)

	_, err = f.resolver.Resolve(context.Background(), ResolveInput{StudentID: f.student})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestResolveIsRepeatable(t *testing.T) {
	f := newResolverFixture(t)
	for i, name := range []string{"A", "B", "C", "D"} {
		def := ft.AddDefinition(t, f.db, ft.Flat(name, "10"))
		ft.AssignToClass(t, f.db, def.FeeDefinitionID, f.class, i%2, nil, nil)
	}
	in := ResolveInput{StudentID: f.student, PeriodEnd: ft.DatePtr(2025, 6, 30)}

	first, err := f.resolver.Resolve(context.Background(), in)
	require.NoError(t, err)
	second, err := f.resolver.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
