package multidb

// binlog 监听, 只支持 MySQL/MariaDB
//
//	bc, _ := client.Binlog(multidb.BinlogConfig{Addr: "127.0.0.1:3306", User: "canal", Password: "xxx", UseHistory: true})
//	_ = bc.Listen(multidb.TableListener{
//		Schema: "shop", Table: "orders", Model: Order{},
//		Actions: []multidb.Action{multidb.ActionInsert},
//		Handle:  func(changes []multidb.RowChange) { ... },
//	})
//	go bc.Run(ctx)

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/duke-git/lancet/v2/slice"
	"github.com/go-mysql-org/go-mysql/canal"
	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/schema"
	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/preceeder/go.db.multidb/builder"
	"github.com/preceeder/go.db.multidb/mapper"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type BinlogConfig struct {
	Addr       string `json:"addr"` // "127.0.0.1:13306"
	Password   string `json:"password"`
	User       string `json:"user"`
	UseHistory bool   `json:"useHistory"` // 是否从上次结束的位置开始, true 的时候 Position 生效
	Position   string `json:"position"`   // 同步位置的保存路径, 默认 binlog_position.json
	PoolSize   int    `json:"poolSize"`   // 处理函数的协程池大小, 默认 1000
}

type Action string

const (
	ActionInsert Action = canal.InsertAction
	ActionUpdate Action = canal.UpdateAction
	ActionDelete Action = canal.DeleteAction
)

// RowChange 一行数据的变化, 值是 Model 类型的指针
// insert 只有 After, delete 只有 Before
type RowChange struct {
	Action Action
	Schema string
	Table  string
	Before any
	After  any
}

type TableListener struct {
	Schema  string
	Table   string
	Model   any      // 结构体或结构体指针, 行数据解码成这个类型
	Actions []Action // 为空时监听全部
	Handle  func(changes []RowChange)
}

type BinlogClient struct {
	canal.DummyEventHandler
	cfg    BinlogConfig
	flavor string
	mapper *mapper.Mapper
	logger zerolog.Logger
	pool   *ants.Pool

	mu        sync.RWMutex
	listeners map[string]listener
	canal     *canal.Canal
	closed    atomic.Bool
}

type listener struct {
	TableListener
	meta *mapper.Meta
}

func NewBinlogClient(d builder.Dialect, cfg BinlogConfig, m *mapper.Mapper, logger zerolog.Logger) (*BinlogClient, error) {
	var flavor string
	switch d {
	case builder.MySQL:
		flavor = mysql.MySQLFlavor
	case builder.MariaDB:
		flavor = mysql.MariaDBFlavor
	default:
		return nil, errors.WithStack(&builder.UnsupportedError{Dialect: d, Feature: "binlog"})
	}
	if cfg.Position == "" {
		cfg.Position = "binlog_position.json"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1000
	}
	if m == nil {
		m = mapper.Default
	}
	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, errors.Wrap(err, "binlog pool")
	}
	return &BinlogClient{
		cfg:       cfg,
		flavor:    flavor,
		mapper:    m,
		logger:    logger,
		pool:      pool,
		listeners: make(map[string]listener),
	}, nil
}

// Binlog 使用 Client 的方言, Mapper 和 logger
func (c *Client) Binlog(cfg BinlogConfig) (*BinlogClient, error) {
	return NewBinlogClient(c.dialect, cfg, c.mapper, c.logger)
}

func tableKey(schemaName, table string) string {
	return strings.ToLower(schemaName + "." + table)
}

// Listen 需要在 Run 之前调用
func (h *BinlogClient) Listen(l TableListener) error {
	if !builder.ValidIdentifier(l.Schema) || !builder.ValidIdentifier(l.Table) {
		return errors.Wrapf(ErrIllegalIdentifier, "%s.%s", l.Schema, l.Table)
	}
	if l.Handle == nil {
		return errors.Wrap(ErrIllegalArgument, "listener without handler")
	}
	meta, err := h.mapper.MetaOf(l.Model)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.canal != nil {
		return errors.Wrap(ErrIllegalArgument, "binlog is already running")
	}
	h.listeners[tableKey(l.Schema, l.Table)] = listener{TableListener: l, meta: meta}
	return nil
}

func (h *BinlogClient) String() string {
	return "multidb.BinlogClient"
}

func (h *BinlogClient) OnRow(e *canal.RowsEvent) error {
	h.mu.RLock()
	l, ok := h.listeners[tableKey(e.Table.Schema, e.Table.Name)]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	if len(l.Actions) > 0 && !slice.Contain(l.Actions, Action(e.Action)) {
		return nil
	}
	changes, err := h.decode(l, e)
	if err != nil {
		// 解码失败不影响后续的事件
		h.logger.Error().Err(err).Str("table", e.Table.String()).Str("action", e.Action).Msg("binlog decode")
		return nil
	}
	h.dispatch(l, changes)
	return nil
}

func (h *BinlogClient) decode(l listener, e *canal.RowsEvent) ([]RowChange, error) {
	columns := lo.Map(e.Table.Columns, func(c schema.TableColumn, _ int) string { return c.Name })
	objects := make([]any, len(e.Rows))
	for i, row := range e.Rows {
		values := enumNames(e.Table, row)
		obj := reflect.New(l.meta.Type).Interface()
		if err := h.mapper.FromRow(columns[:len(values)], values, obj); err != nil {
			return nil, err
		}
		objects[i] = obj
	}

	change := RowChange{Action: Action(e.Action), Schema: e.Table.Schema, Table: e.Table.Name}
	var changes []RowChange
	switch e.Action {
	case canal.UpdateAction:
		// 更新事件的行是 (旧, 新) 成对出现的
		for i := 0; i+1 < len(objects); i += 2 {
			c := change
			c.Before, c.After = objects[i], objects[i+1]
			changes = append(changes, c)
		}
	case canal.DeleteAction:
		for _, obj := range objects {
			c := change
			c.Before = obj
			changes = append(changes, c)
		}
	default:
		for _, obj := range objects {
			c := change
			c.After = obj
			changes = append(changes, c)
		}
	}
	return changes, nil
}

// enumNames binlog 中的枚举是从 1 开始的下标, 转换为枚举的名字
func enumNames(t *schema.Table, row []any) []any {
	values := make([]any, len(row))
	copy(values, row)
	if len(values) > len(t.Columns) {
		values = values[:len(t.Columns)]
	}
	for i := range values {
		col := t.Columns[i]
		if col.Type != schema.TYPE_ENUM {
			continue
		}
		idx, ok := values[i].(int64)
		if !ok {
			continue
		}
		if idx <= 0 || int(idx) > len(col.EnumValues) {
			values[i] = ""
			continue
		}
		values[i] = col.EnumValues[idx-1]
	}
	return values
}

func (h *BinlogClient) dispatch(l listener, changes []RowChange) {
	if len(changes) == 0 {
		return
	}
	err := h.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				h.logger.Error().Interface("panic", p).Str("table", l.Table).
					Str("stack", string(debug.Stack())).Msg("binlog handler")
			}
		}()
		l.Handle(changes)
	})
	if err != nil {
		h.logger.Error().Err(err).Str("table", l.Table).Int("rows", len(changes)).Msg("binlog submit")
	}
}

// Run 阻塞直到 ctx 结束或者 Close, 调用前先 Listen
func (h *BinlogClient) Run(ctx context.Context) error {
	cfg := canal.NewDefaultConfig()
	cfg.Addr = h.cfg.Addr
	cfg.User = h.cfg.User
	cfg.Password = h.cfg.Password
	cfg.Flavor = h.flavor
	cfg.Charset = "utf8mb4"
	cfg.Dump.ExecutionPath = ""

	h.mu.Lock()
	if h.canal != nil {
		h.mu.Unlock()
		return errors.Wrap(ErrIllegalArgument, "binlog is already running")
	}
	for _, l := range h.listeners {
		cfg.IncludeTableRegex = append(cfg.IncludeTableRegex,
			fmt.Sprintf("^%s\\.%s$", regexp.QuoteMeta(l.Schema), regexp.QuoteMeta(l.Table)))
	}
	c, err := canal.NewCanal(cfg)
	if err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "new canal")
	}
	c.SetEventHandler(h)
	h.canal = c
	h.mu.Unlock()

	pos, err := h.startPosition()
	if err != nil {
		h.reset(c)
		return err
	}
	h.logger.Info().Str("addr", h.cfg.Addr).Str("flavor", h.flavor).
		Strs("tables", cfg.IncludeTableRegex).Str("file", pos.Name).Uint32("pos", pos.Pos).Msg("binlog start")

	stop := context.AfterFunc(ctx, func() { _ = h.Close() })
	defer stop()
	if err := c.RunFrom(pos); err != nil && !h.closed.Load() {
		return err
	}
	return nil
}

// reset 启动失败时关闭 canal, 之后可以重新 Run
func (h *BinlogClient) reset(c *canal.Canal) {
	c.Close()
	h.mu.Lock()
	if h.canal == c {
		h.canal = nil
	}
	h.mu.Unlock()
}

func (h *BinlogClient) startPosition() (mysql.Position, error) {
	if h.cfg.UseHistory {
		if pos, ok := h.loadPosition(); ok {
			return pos, nil
		}
	}
	// 没有历史位置, 使用最新的位置
	pos, err := h.canal.GetMasterPos()
	if err != nil {
		return pos, errors.Wrap(err, "binlog master position")
	}
	return pos, nil
}

func (h *BinlogClient) loadPosition() (mysql.Position, bool) {
	var pos mysql.Position
	if !fileutil.IsExist(h.cfg.Position) {
		return pos, false
	}
	content, err := fileutil.ReadFileToString(h.cfg.Position)
	if err != nil {
		h.logger.Error().Err(err).Str("file", h.cfg.Position).Msg("read binlog position")
		return pos, false
	}
	if err := jsoniter.UnmarshalFromString(content, &pos); err != nil {
		h.logger.Error().Err(err).Str("file", h.cfg.Position).Msg("parse binlog position")
		return pos, false
	}
	return pos, pos.Pos > 0 && pos.Name != ""
}

func (h *BinlogClient) savePosition(pos mysql.Position) error {
	if pos.Name == "" {
		return nil
	}
	content, err := jsoniter.MarshalToString(pos)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(fileutil.WriteStringToFile(h.cfg.Position, content, false))
}

// Close 停止监听并保存已经同步的位置
func (h *BinlogClient) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer h.pool.Release()

	h.mu.RLock()
	c := h.canal
	h.mu.RUnlock()
	if c == nil {
		return nil
	}
	c.Close()
	if err := h.savePosition(c.SyncedPosition()); err != nil {
		h.logger.Error().Err(err).Str("file", h.cfg.Position).Msg("save binlog position")
		return err
	}
	return nil
}
