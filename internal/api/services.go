package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// ExpenseServiceName is the fully-qualified name of the ExpenseService service.
	ExpenseServiceName = "housesplit.v1.ExpenseService"
	// BalanceServiceName is the fully-qualified name of the BalanceService service.
	BalanceServiceName = "housesplit.v1.BalanceService"
	// RosterServiceName is the fully-qualified name of the RosterService service.
	RosterServiceName = "housesplit.v1.RosterService"
)

// Procedure names, in the form "/service/method".
const (
	ExpenseServiceCreateExpenseProcedure  = "/housesplit.v1.ExpenseService/CreateExpense"
	ExpenseServiceGetExpenseProcedure     = "/housesplit.v1.ExpenseService/GetExpense"
	ExpenseServiceListExpensesProcedure   = "/housesplit.v1.ExpenseService/ListExpenses"
	ExpenseServiceDeleteExpenseProcedure  = "/housesplit.v1.ExpenseService/DeleteExpense"
	ExpenseServiceUnlockDeleteProcedure   = "/housesplit.v1.ExpenseService/UnlockDelete"
	ExpenseServiceListCategoriesProcedure = "/housesplit.v1.ExpenseService/ListCategories"
	ExpenseServiceAllocateProcedure       = "/housesplit.v1.ExpenseService/Allocate"

	BalanceServiceGetBalancesProcedure        = "/housesplit.v1.BalanceService/GetBalances"
	BalanceServiceGetMonthlyBalancesProcedure = "/housesplit.v1.BalanceService/GetMonthlyBalances"
	BalanceServiceGetPersonalSummaryProcedure = "/housesplit.v1.BalanceService/GetPersonalSummary"
	BalanceServiceGetDashboardStatsProcedure  = "/housesplit.v1.BalanceService/GetDashboardStats"
	BalanceServiceGetSettlementsProcedure     = "/housesplit.v1.BalanceService/GetSettlements"

	RosterServiceGetRosterProcedure       = "/housesplit.v1.RosterService/GetRoster"
	RosterServiceSetPayoutCardProcedure   = "/housesplit.v1.RosterService/SetPayoutCard"
	RosterServiceListPayoutCardsProcedure = "/housesplit.v1.RosterService/ListPayoutCards"
)

// ExpenseServiceHandler is implemented by the expense ledger service.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	UnlockDelete(context.Context, *connect.Request[UnlockDeleteRequest]) (*connect.Response[UnlockDeleteResponse], error)
	ListCategories(context.Context, *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error)
	Allocate(context.Context, *connect.Request[AllocateRequest]) (*connect.Response[AllocateResponse], error)
}

// BalanceServiceHandler is implemented by the balance read service.
type BalanceServiceHandler interface {
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	GetMonthlyBalances(context.Context, *connect.Request[GetMonthlyBalancesRequest]) (*connect.Response[GetMonthlyBalancesResponse], error)
	GetPersonalSummary(context.Context, *connect.Request[GetPersonalSummaryRequest]) (*connect.Response[GetPersonalSummaryResponse], error)
	GetDashboardStats(context.Context, *connect.Request[GetDashboardStatsRequest]) (*connect.Response[GetDashboardStatsResponse], error)
	GetSettlements(context.Context, *connect.Request[GetSettlementsRequest]) (*connect.Response[GetSettlementsResponse], error)
}

// RosterServiceHandler is implemented by the roster service.
type RosterServiceHandler interface {
	GetRoster(context.Context, *connect.Request[GetRosterRequest]) (*connect.Response[GetRosterResponse], error)
	SetPayoutCard(context.Context, *connect.Request[SetPayoutCardRequest]) (*connect.Response[SetPayoutCardResponse], error)
	ListPayoutCards(context.Context, *connect.Request[ListPayoutCardsRequest]) (*connect.Response[ListPayoutCardsResponse], error)
}

// procedureMux routes by exact procedure path.
type procedureMux map[string]http.Handler

func (m procedureMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.URL.Path]; ok {
		h.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// NewExpenseServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + ExpenseServiceName + "/", procedureMux{
		ExpenseServiceCreateExpenseProcedure:  connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...),
		ExpenseServiceGetExpenseProcedure:     connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...),
		ExpenseServiceListExpensesProcedure:   connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...),
		ExpenseServiceDeleteExpenseProcedure:  connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...),
		ExpenseServiceUnlockDeleteProcedure:   connect.NewUnaryHandler(ExpenseServiceUnlockDeleteProcedure, svc.UnlockDelete, opts...),
		ExpenseServiceListCategoriesProcedure: connect.NewUnaryHandler(ExpenseServiceListCategoriesProcedure, svc.ListCategories, opts...),
		ExpenseServiceAllocateProcedure:       connect.NewUnaryHandler(ExpenseServiceAllocateProcedure, svc.Allocate, opts...),
	}
}

// NewBalanceServiceHandler builds an HTTP handler for the balance service.
func NewBalanceServiceHandler(svc BalanceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + BalanceServiceName + "/", procedureMux{
		BalanceServiceGetBalancesProcedure:        connect.NewUnaryHandler(BalanceServiceGetBalancesProcedure, svc.GetBalances, opts...),
		BalanceServiceGetMonthlyBalancesProcedure: connect.NewUnaryHandler(BalanceServiceGetMonthlyBalancesProcedure, svc.GetMonthlyBalances, opts...),
		BalanceServiceGetPersonalSummaryProcedure: connect.NewUnaryHandler(BalanceServiceGetPersonalSummaryProcedure, svc.GetPersonalSummary, opts...),
		BalanceServiceGetDashboardStatsProcedure:  connect.NewUnaryHandler(BalanceServiceGetDashboardStatsProcedure, svc.GetDashboardStats, opts...),
		BalanceServiceGetSettlementsProcedure:     connect.NewUnaryHandler(BalanceServiceGetSettlementsProcedure, svc.GetSettlements, opts...),
	}
}

// NewRosterServiceHandler builds an HTTP handler for the roster service.
func NewRosterServiceHandler(svc RosterServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + RosterServiceName + "/", procedureMux{
		RosterServiceGetRosterProcedure:       connect.NewUnaryHandler(RosterServiceGetRosterProcedure, svc.GetRoster, opts...),
		RosterServiceSetPayoutCardProcedure:   connect.NewUnaryHandler(RosterServiceSetPayoutCardProcedure, svc.SetPayoutCard, opts...),
		RosterServiceListPayoutCardsProcedure: connect.NewUnaryHandler(RosterServiceListPayoutCardsProcedure, svc.ListPayoutCards, opts...),
	}
}

// ExpenseServiceClient calls the expense service.
type ExpenseServiceClient struct {
	createExpense  *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense     *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses   *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense  *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	unlockDelete   *connect.Client[UnlockDeleteRequest, UnlockDeleteResponse]
	listCategories *connect.Client[ListCategoriesRequest, ListCategoriesResponse]
	allocate       *connect.Client[AllocateRequest, AllocateResponse]
}

// NewExpenseServiceClient constructs a client for the expense service.
// baseURL is the scheme and host of the server, e.g. http://localhost:8080.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ExpenseServiceClient{
		createExpense:  connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		getExpense:     connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+ExpenseServiceGetExpenseProcedure, opts...),
		listExpenses:   connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		deleteExpense:  connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
		unlockDelete:   connect.NewClient[UnlockDeleteRequest, UnlockDeleteResponse](httpClient, baseURL+ExpenseServiceUnlockDeleteProcedure, opts...),
		listCategories: connect.NewClient[ListCategoriesRequest, ListCategoriesResponse](httpClient, baseURL+ExpenseServiceListCategoriesProcedure, opts...),
		allocate:       connect.NewClient[AllocateRequest, AllocateResponse](httpClient, baseURL+ExpenseServiceAllocateProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) UnlockDelete(ctx context.Context, req *connect.Request[UnlockDeleteRequest]) (*connect.Response[UnlockDeleteResponse], error) {
	return c.unlockDelete.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListCategories(ctx context.Context, req *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error) {
	return c.listCategories.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) Allocate(ctx context.Context, req *connect.Request[AllocateRequest]) (*connect.Response[AllocateResponse], error) {
	return c.allocate.CallUnary(ctx, req)
}

// BalanceServiceClient calls the balance service.
type BalanceServiceClient struct {
	getBalances        *connect.Client[GetBalancesRequest, GetBalancesResponse]
	getMonthlyBalances *connect.Client[GetMonthlyBalancesRequest, GetMonthlyBalancesResponse]
	getPersonalSummary *connect.Client[GetPersonalSummaryRequest, GetPersonalSummaryResponse]
	getDashboardStats  *connect.Client[GetDashboardStatsRequest, GetDashboardStatsResponse]
	getSettlements     *connect.Client[GetSettlementsRequest, GetSettlementsResponse]
}

// NewBalanceServiceClient constructs a client for the balance service.
func NewBalanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BalanceServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &BalanceServiceClient{
		getBalances:        connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+BalanceServiceGetBalancesProcedure, opts...),
		getMonthlyBalances: connect.NewClient[GetMonthlyBalancesRequest, GetMonthlyBalancesResponse](httpClient, baseURL+BalanceServiceGetMonthlyBalancesProcedure, opts...),
		getPersonalSummary: connect.NewClient[GetPersonalSummaryRequest, GetPersonalSummaryResponse](httpClient, baseURL+BalanceServiceGetPersonalSummaryProcedure, opts...),
		getDashboardStats:  connect.NewClient[GetDashboardStatsRequest, GetDashboardStatsResponse](httpClient, baseURL+BalanceServiceGetDashboardStatsProcedure, opts...),
		getSettlements:     connect.NewClient[GetSettlementsRequest, GetSettlementsResponse](httpClient, baseURL+BalanceServiceGetSettlementsProcedure, opts...),
	}
}

func (c *BalanceServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) GetMonthlyBalances(ctx context.Context, req *connect.Request[GetMonthlyBalancesRequest]) (*connect.Response[GetMonthlyBalancesResponse], error) {
	return c.getMonthlyBalances.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) GetPersonalSummary(ctx context.Context, req *connect.Request[GetPersonalSummaryRequest]) (*connect.Response[GetPersonalSummaryResponse], error) {
	return c.getPersonalSummary.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) GetDashboardStats(ctx context.Context, req *connect.Request[GetDashboardStatsRequest]) (*connect.Response[GetDashboardStatsResponse], error) {
	return c.getDashboardStats.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) GetSettlements(ctx context.Context, req *connect.Request[GetSettlementsRequest]) (*connect.Response[GetSettlementsResponse], error) {
	return c.getSettlements.CallUnary(ctx, req)
}

// RosterServiceClient calls the roster service.
type RosterServiceClient struct {
	getRoster       *connect.Client[GetRosterRequest, GetRosterResponse]
	setPayoutCard   *connect.Client[SetPayoutCardRequest, SetPayoutCardResponse]
	listPayoutCards *connect.Client[ListPayoutCardsRequest, ListPayoutCardsResponse]
}

// NewRosterServiceClient constructs a client for the roster service.
func NewRosterServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RosterServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &RosterServiceClient{
		getRoster:       connect.NewClient[GetRosterRequest, GetRosterResponse](httpClient, baseURL+RosterServiceGetRosterProcedure, opts...),
		setPayoutCard:   connect.NewClient[SetPayoutCardRequest, SetPayoutCardResponse](httpClient, baseURL+RosterServiceSetPayoutCardProcedure, opts...),
		listPayoutCards: connect.NewClient[ListPayoutCardsRequest, ListPayoutCardsResponse](httpClient, baseURL+RosterServiceListPayoutCardsProcedure, opts...),
	}
}

func (c *RosterServiceClient) GetRoster(ctx context.Context, req *connect.Request[GetRosterRequest]) (*connect.Response[GetRosterResponse], error) {
	return c.getRoster.CallUnary(ctx, req)
}

func (c *RosterServiceClient) SetPayoutCard(ctx context.Context, req *connect.Request[SetPayoutCardRequest]) (*connect.Response[SetPayoutCardResponse], error) {
	return c.setPayoutCard.CallUnary(ctx, req)
}

func (c *RosterServiceClient) ListPayoutCards(ctx context.Context, req *connect.Request[ListPayoutCardsRequest]) (*connect.Response[ListPayoutCardsResponse], error) {
	return c.listPayoutCards.CallUnary(ctx, req)
}

// IsCode reports whether err is a Connect error with the given code.
func IsCode(err error, code connect.Code) bool {
	var connectErr *connect.Error
	return errors.As(err, &connectErr) && connectErr.Code() == code
}
