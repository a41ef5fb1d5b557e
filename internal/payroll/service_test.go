package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

var (
	testSession = &session.Session{Token: "token", Operator: "ops"}
	testPeriod  = payroll.Period{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
)

func previewRow() payroll.Row {
	return payroll.Row{DriverID: 7, DriverName: "Dana Ortiz", Period: testPeriod, Status: payroll.StatusPreview}
}

func generatedRow(id int64, status payroll.Status) payroll.Row {
	r := previewRow()
	r.PayrollID = &id
	r.Status = status

	return r
}

func TestService_Generate(t *testing.T) {
	type testCase struct {
		name       string
		sess       *session.Session
		row        payroll.Row
		setupMock  func(m *payroll.MockGateway)
		wantErr    error
		wantExists bool
		wantID     *int64
	}

	reloaded := []payroll.Row{generatedRow(41, payroll.StatusGenerated)}

	tests := []testCase{
		{
			name: "Success",
			sess: testSession,
			row:  previewRow(),
			setupMock: func(m *payroll.MockGateway) {
				gomock.InOrder(
					m.EXPECT().
						Generate(gomock.Any(), testSession, payroll.GenerateParams{DriverID: 7, Period: testPeriod}).
						Return(int64(41), nil),
					m.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(reloaded, nil),
				)
			},
			wantID: new(int64(41)),
		},
		{
			name: "ConflictReportsAlreadyExistsAndReloads",
			sess: testSession,
			row:  previewRow(),
			setupMock: func(m *payroll.MockGateway) {
				m.EXPECT().
					Generate(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(int64(0), fmt.Errorf("backend 409: %w", payroll.ErrConflict))
				m.EXPECT().Overview(gomock.Any(), gomock.Any(), testPeriod).Return(reloaded, nil)
			},
			wantExists: true,
		},
		{
			name:    "NotPreview",
			sess:    testSession,
			row:     generatedRow(41, payroll.StatusGenerated),
			wantErr: payroll.ErrActionNotAllowed,
		},
		{
			name:    "NoSession",
			sess:    nil,
			row:     previewRow(),
			wantErr: session.ErrNoSession,
		},
		{
			name:    "EmptyToken",
			sess:    &session.Session{},
			row:     previewRow(),
			wantErr: session.ErrNoSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			gw := payroll.NewMockGateway(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(gw)
			}

			svc := payroll.NewService(gw)
			got, err := svc.Generate(context.Background(), tt.sess, tt.row, testPeriod)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantExists, got.AlreadyExists)
			assert.Equal(t, tt.wantID, got.PayrollID)
			assert.Equal(t, reloaded, got.Rows)
		})
	}
}

func TestService_Generate_BackendErrorSkipsReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	gw.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), errors.New("boom"))

	_, err := payroll.NewService(gw).Generate(context.Background(), testSession, previewRow(), testPeriod)
	require.Error(t, err)
	assert.NotErrorIs(t, err, payroll.ErrConflict)
}

func TestService_GenerateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	report := payroll.BatchReport{
		Generated:       []payroll.BatchItem{{DriverID: 1, PayrollID: new(int64(90))}},
		SkippedExisting: []payroll.BatchItem{{DriverID: 2}},
		Failed:          []payroll.BatchItem{{DriverID: 3, Reason: "no trips"}},
	}

	gw.EXPECT().
		GenerateBatch(gomock.Any(), testSession, payroll.BatchParams{Period: testPeriod, SkipExisting: true}).
		Return(report, nil)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(nil, nil)

	got, err := payroll.NewService(gw).GenerateBatch(context.Background(), testSession, testPeriod)
	require.NoError(t, err)
	require.NotNil(t, got.Batch)
	assert.Equal(t, report, *got.Batch)
}

func TestService_Save(t *testing.T) {
	trips := []payroll.TripLine{
		{TripID: 11, OriginalWeightKg: 100, EditedWeightKg: new(95.456)},
		{TripID: 12, OriginalWeightKg: 50},
	}

	type testCase struct {
		name      string
		row       payroll.Row
		setupMock func(m *payroll.MockGateway)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "PersistsNoteThenWeights",
			row:  generatedRow(41, payroll.StatusGenerated),
			setupMock: func(m *payroll.MockGateway) {
				gomock.InOrder(
					m.EXPECT().UpdateNote(gomock.Any(), testSession, int64(41), "scale 3 recalibrated").Return(nil),
					m.EXPECT().UpdateTripWeights(gomock.Any(), testSession, int64(41), []payroll.TripWeight{
						{TripID: 11, WeightKg: 95.46},
						{TripID: 12, WeightKg: 50},
					}).Return(nil),
					m.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(nil, nil),
				)
			},
		},
		{
			name: "NoteFailureStopsBeforeWeights",
			row:  generatedRow(41, payroll.StatusGenerated),
			setupMock: func(m *payroll.MockGateway) {
				m.EXPECT().UpdateNote(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("down"))
			},
			wantErr: errors.New("saving discrepancy note: down"),
		},
		{
			name:    "ApprovedIsReadOnly",
			row:     generatedRow(41, payroll.StatusApproved),
			wantErr: payroll.ErrActionNotAllowed,
		},
		{
			name:    "PreviewCannotSave",
			row:     previewRow(),
			wantErr: payroll.ErrActionNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := payroll.NewMockGateway(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(gw)
			}

			_, err := payroll.NewService(gw).Save(context.Background(), testSession, tt.row, "  scale 3 recalibrated ", trips, testPeriod)

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, payroll.ErrActionNotAllowed):
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.EqualError(t, err, tt.wantErr.Error())
			}
		})
	}
}

func TestService_Approve(t *testing.T) {
	t.Run("Generated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := payroll.NewMockGateway(ctrl)

		gw.EXPECT().Approve(gomock.Any(), testSession, int64(41)).Return(nil)
		gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(nil, nil)

		_, err := payroll.NewService(gw).Approve(context.Background(), testSession, generatedRow(41, payroll.StatusGenerated), testPeriod)
		require.NoError(t, err)
	})

	t.Run("Preview", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := payroll.NewMockGateway(ctrl)

		_, err := payroll.NewService(gw).Approve(context.Background(), testSession, previewRow(), testPeriod)
		assert.ErrorIs(t, err, payroll.ErrActionNotAllowed)
	})

	t.Run("AlreadyApproved", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := payroll.NewMockGateway(ctrl)

		_, err := payroll.NewService(gw).Approve(context.Background(), testSession, generatedRow(41, payroll.StatusApproved), testPeriod)
		assert.ErrorIs(t, err, payroll.ErrActionNotAllowed)
	})
}

func TestService_Pay(t *testing.T) {
	proof := []byte{0x89, 'P', 'N', 'G'}

	type testCase struct {
		name      string
		row       payroll.Row
		payment   payroll.Payment
		setupMock func(m *payroll.MockGateway)
		wantErr   error
		want      *payroll.PaymentReceipt
	}

	tests := []testCase{
		{
			name:    "PartialPayment",
			row:     generatedRow(41, payroll.StatusApproved),
			payment: payroll.Payment{Amount: 400, ProofImage: proof, ReferenceNo: "TRX-1"},
			setupMock: func(m *payroll.MockGateway) {
				m.EXPECT().
					Pay(gomock.Any(), testSession, int64(41), payroll.Payment{Amount: 400, ProofImage: proof, ReferenceNo: "TRX-1"}).
					Return(payroll.PaymentReceipt{Status: payroll.StatusPartial, PaidAmount: 400}, nil)
				m.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(nil, nil)
			},
			want: &payroll.PaymentReceipt{Status: payroll.StatusPartial, PaidAmount: 400},
		},
		{
			name:    "ZeroAmount",
			row:     generatedRow(41, payroll.StatusGenerated),
			payment: payroll.Payment{Amount: 0, ProofImage: proof},
			wantErr: payroll.ErrInvalidAmount,
		},
		{
			name:    "NegativeAmount",
			row:     generatedRow(41, payroll.StatusPartial),
			payment: payroll.Payment{Amount: -10, ProofImage: proof},
			wantErr: payroll.ErrInvalidAmount,
		},
		{
			name:    "MissingProof",
			row:     generatedRow(41, payroll.StatusGenerated),
			payment: payroll.Payment{Amount: 10},
			wantErr: payroll.ErrMissingProof,
		},
		{
			name:    "AlreadyPaid",
			row:     generatedRow(41, payroll.StatusPaid),
			payment: payroll.Payment{Amount: 10, ProofImage: proof},
			wantErr: payroll.ErrActionNotAllowed,
		},
		{
			name:    "PreviewCannotPay",
			row:     previewRow(),
			payment: payroll.Payment{Amount: 10, ProofImage: proof},
			wantErr: payroll.ErrActionNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := payroll.NewMockGateway(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(gw)
			}

			got, err := payroll.NewService(gw).Pay(context.Background(), testSession, tt.row, tt.payment, testPeriod)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Receipt)
		})
	}
}

func TestService_Pay_ZeroAmountMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	_, err := payroll.NewService(gw).Pay(context.Background(), testSession, generatedRow(41, payroll.StatusGenerated),
		payroll.Payment{Amount: 0, ProofImage: []byte("x")}, testPeriod)
	assert.EqualError(t, err, "Amount must be > 0")
}

func TestService_Trips(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	previewTrips := []payroll.TripLine{{TripID: 1}}
	payrollTrips := []payroll.TripLine{{TripID: 2}}

	gw.EXPECT().PreviewTrips(gomock.Any(), testSession, int64(7), testPeriod).Return(previewTrips, nil)
	gw.EXPECT().PayrollTrips(gomock.Any(), testSession, int64(41)).Return(payrollTrips, nil)

	svc := payroll.NewService(gw)

	got, err := svc.Trips(context.Background(), testSession, previewRow())
	require.NoError(t, err)
	assert.Equal(t, previewTrips, got)

	got, err = svc.Trips(context.Background(), testSession, generatedRow(41, payroll.StatusGenerated))
	require.NoError(t, err)
	assert.Equal(t, payrollTrips, got)
}

func TestService_Overview_ExpiredSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	expired := &session.Session{Token: "t", ExpiresAt: time.Now().Add(-time.Minute)}

	_, err := payroll.NewService(gw).Overview(context.Background(), expired, testPeriod)
	assert.ErrorIs(t, err, session.ErrExpired)
}

func TestService_ReloadFailureAfterMutation(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	gw.EXPECT().Approve(gomock.Any(), gomock.Any(), int64(41)).Return(nil)
	gw.EXPECT().Overview(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	got, err := payroll.NewService(gw).Approve(context.Background(), testSession, generatedRow(41, payroll.StatusGenerated), testPeriod)
	require.ErrorIs(t, err, payroll.ErrReloadFailed)
	assert.Contains(t, err.Error(), "timeout")
	require.NotNil(t, got.PayrollID)
	assert.Equal(t, int64(41), *got.PayrollID)
	assert.Nil(t, got.Rows)
}

func TestService_Pay_ReloadFailureKeepsReceipt(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := payroll.NewMockGateway(ctrl)

	gw.EXPECT().Pay(gomock.Any(), testSession, int64(41), gomock.Any()).
		Return(payroll.PaymentReceipt{Status: payroll.StatusPaid, PaidAmount: 910}, nil).
		Times(1)
	gw.EXPECT().Overview(gomock.Any(), testSession, testPeriod).Return(nil, errors.New("timeout"))

	payment := payroll.Payment{Amount: 810, ProofImage: []byte("PNG")}

	got, err := payroll.NewService(gw).Pay(context.Background(), testSession, generatedRow(41, payroll.StatusApproved), payment, testPeriod)
	require.ErrorIs(t, err, payroll.ErrReloadFailed)
	require.NotNil(t, got.Receipt)
	assert.Equal(t, payroll.StatusPaid, got.Receipt.Status)
}
