package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"booking-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// MonitoringServer serves the ops dashboard on its own port: system and
// database stats over HTTP, plus a websocket feed of refund lifecycle
// events. It implements services.RefundNotifier.
type MonitoringServer struct {
	db   *pgxpool.Pool
	port int

	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan models.RefundEvent

	startedAt time.Time
}

type DashboardStats struct {
	DatabaseStatus    string  `json:"database_status"`
	ActiveConnections int     `json:"active_connections"`
	ResponseTime      int64   `json:"response_time_ms"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	DiskPercent       float64 `json:"disk_percent"`
	PendingRefunds    int     `json:"pending_refunds"`
	ProcessingRefunds int     `json:"processing_refunds"`
	Uptime            string  `json:"uptime"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewMonitoringServer(db *pgxpool.Pool, port int) *MonitoringServer {
	return &MonitoringServer{
		db:        db,
		port:      port,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan models.RefundEvent, 64),
		startedAt: time.Now(),
	}
}

// NotifyRefundEvent queues a refund event for broadcast. Drops the event if
// the broadcast buffer is full rather than blocking the caller.
func (s *MonitoringServer) NotifyRefundEvent(ev models.RefundEvent) {
	select {
	case s.broadcast <- ev:
	default:
		log.Printf("[Monitoring] Broadcast buffer full, dropping refund event %s", ev.RefundID)
	}
}

// Start runs the monitoring server. Blocks; run in a goroutine.
func (s *MonitoringServer) Start() error {
	go s.broadcastLoop()

	r := mux.NewRouter()
	r.HandleFunc("/monitoring/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/monitoring/ws", s.handleWebSocket)

	log.Printf("[Monitoring] Dashboard listening on :%d", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), r)
}

func (s *MonitoringServer) broadcastLoop() {
	for ev := range s.broadcast {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}

		s.clientsMux.Lock()
		for conn := range s.clients {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				delete(s.clients, conn)
			}
		}
		s.clientsMux.Unlock()
	}
}

func (s *MonitoringServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Monitoring] WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()

	// Drain reads until the client goes away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.clientsMux.Lock()
				delete(s.clients, conn)
				s.clientsMux.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

func (s *MonitoringServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.collectStats(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *MonitoringServer) collectStats(ctx context.Context) DashboardStats {
	stats := DashboardStats{
		DatabaseStatus: "healthy",
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := s.db.Ping(pingCtx); err != nil {
		stats.DatabaseStatus = "unhealthy"
	}
	stats.ResponseTime = time.Since(start).Milliseconds()
	stats.ActiveConnections = int(s.db.Stat().AcquiredConns())

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = du.UsedPercent
	}

	// Refund queue depth straight from the ledger
	rows, err := s.db.Query(ctx, `
		SELECT refund_state, COUNT(*)
		FROM ledger_entries
		WHERE entry_type = 'REFUND' AND refund_state IN ('pending', 'processing')
		GROUP BY refund_state`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var state string
			var count int
			if rows.Scan(&state, &count) == nil {
				switch state {
				case "pending":
					stats.PendingRefunds = count
				case "processing":
					stats.ProcessingRefunds = count
				}
			}
		}
	}

	return stats
}
