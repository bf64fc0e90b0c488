package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/http/handler"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/service"
)

var _ = Describe("TicketHandler", func() {
	var (
		router *gin.Engine
		svc    *mockTicketService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockTicketService{}
		h := handler.NewTicketHandler(svc, "X-Trace-ID")
		router.POST("/tickets", h.Create)
		router.GET("/tickets/:id", h.Get)
	})

	post := func(body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/tickets", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Create", func() {
		It("returns 202 and forwards the trace header", func() {
			var captured service.TicketIngestParams
			svc.ingestFn = func(_ context.Context, params service.TicketIngestParams) (*service.TicketIngestResult, error) {
				captured = params
				return &service.TicketIngestResult{
					Ticket:   &model.Ticket{ID: 11, Status: model.TicketStatusOpen},
					Enqueued: true,
				}, nil
			}

			w := post(`{"account_id":7,"subject":"Password","content":"How do I reset it?","priority":"high"}`,
				map[string]string{"X-Trace-ID": "4bf92f3577b34da6a3ce929d0e0e4736"})

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["ticket_id"]).To(BeEquivalentTo(11))
			Expect(resp["enqueued"]).To(BeTrue())

			Expect(captured.AccountID).To(Equal(int64(7)))
			Expect(captured.Priority).To(Equal(model.TicketPriorityHigh))
			Expect(*captured.TraceID).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
		})

		It("returns 400 when content is missing", func() {
			w := post(`{"account_id":7}`, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for invalid priorities", func() {
			svc.ingestFn = func(context.Context, service.TicketIngestParams) (*service.TicketIngestResult, error) {
				return nil, service.ErrInvalidPriority
			}

			w := post(`{"account_id":7,"content":"hi","priority":"critical"}`, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when ingestion fails", func() {
			svc.ingestFn = func(context.Context, service.TicketIngestParams) (*service.TicketIngestResult, error) {
				return nil, errors.New("redis down")
			}

			w := post(`{"account_id":7,"content":"hi"}`, nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Get", func() {
		It("returns the ticket with its response", func() {
			svc.getFn = func(_ context.Context, id int64) (*service.TicketView, error) {
				return &service.TicketView{
					Ticket:   &model.Ticket{ID: id, Status: model.TicketStatusAutoResolved},
					Response: &model.CandidateResponse{ID: 3, TicketID: id, Type: model.ResponseTypeAutoResolve},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/tickets/11", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["ticket"]["status"]).To(Equal("auto_resolved"))
			Expect(resp["response"]["type"]).To(Equal("auto_resolve"))
		})

		It("returns 404 for unknown tickets", func() {
			req := httptest.NewRequest(http.MethodGet, "/tickets/11", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for malformed ids", func() {
			req := httptest.NewRequest(http.MethodGet, "/tickets/abc", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
