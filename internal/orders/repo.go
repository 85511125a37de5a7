package orders

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"strings"
)

// Repo is the Postgres OrderRepository, CustomerRepository and CartRepository.
type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, order_number, customer_id, subtotal, currency, status, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Subtotal, &o.Currency, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

// Insert writes the order and its line snapshots in one transaction.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin insert order")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.OrderNumber, o.CustomerID, o.Subtotal, o.Currency, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateNumber
	}
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items(order_id, position, product_id, name_snapshot, price_snapshot, qty)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, it.ProductID, it.NameSnapshot, it.PriceSnapshot, it.Qty)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "insert order items")
	}
	return errors.Wrap(tx.Commit(ctx), "commit order")
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if err := loadItems(ctx, r.DB, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]Order, int, error) {
	where, args := []string{"TRUE"}, []any{}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.CustomerID != "" {
		args = append(args, q.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	var page []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, errors.Wrap(err, "scan order")
		}
		page = append(page, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterate orders")
	}

	if err := loadItems(ctx, r.DB, page); err != nil {
		return nil, 0, err
	}
	out := make([]Order, 0, len(page))
	for _, o := range page {
		out = append(out, *o)
	}
	return out, total, nil
}

// Transition locks the row with SELECT ... FOR UPDATE, so concurrent status
// changes of one order (and their reservation calls) run one at a time.
func (r *Repo) Transition(ctx context.Context, id string, apply func(o Order) (Status, error)) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin transition")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock order")
	}
	if err := loadItems(ctx, tx, []*Order{o}); err != nil {
		return nil, err
	}

	to, err := apply(*o)
	if err != nil {
		return nil, err
	}
	if to == o.Status {
		return o, nil
	}
	err = tx.QueryRow(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		id, string(to)).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit transition")
	}
	o.Status = to
	return o, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound()
	}
	return nil
}

func loadItems(ctx context.Context, q querier, list []*Order) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*Order, len(list))
	keys := make([]string, 0, len(list))
	for _, o := range list {
		byID[o.ID] = o
		o.Items = []LineItem{}
		keys = append(keys, o.ID)
	}
	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, name_snapshot, price_snapshot, qty
		  FROM order_items WHERE order_id = ANY($1::bpchar[])
		 ORDER BY order_id, position`, keys)
	if err != nil {
		return errors.Wrap(err, "query order items")
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it LineItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.NameSnapshot, &it.PriceSnapshot, &it.Qty); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return errors.Wrap(rows.Err(), "iterate order items")
}

const customerColumns = `id, email, name, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Email, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) InsertCustomer(ctx context.Context, c *Customer) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO customers(`+customerColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Email, c.Name, c.CreatedAt, c.UpdatedAt)
	return errors.Wrap(err, "insert customer")
}

func (r *Repo) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	c, err := scanCustomer(r.DB.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	return c, errors.Wrap(err, "get customer")
}

func (r *Repo) ListCustomers(ctx context.Context, q CustomerQuery) ([]Customer, int, error) {
	cond, args := "TRUE", []any{}
	if q.Q != "" {
		args = append(args, "%"+escapeLike(q.Q)+"%")
		cond = "(email ILIKE $1 OR name ILIKE $1)"
	}
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM customers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count customers")
	}
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`SELECT %s FROM customers WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		customerColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list customers")
	}
	defer rows.Close()

	out := make([]Customer, 0, q.PageSize)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan customer")
		}
		out = append(out, *c)
	}
	return out, total, errors.Wrap(rows.Err(), "iterate customers")
}

func (r *Repo) UpdateCustomer(ctx context.Context, id string, p CustomerPatch) (*Customer, error) {
	c, err := scanCustomer(r.DB.QueryRow(ctx, `
		UPDATE customers
		   SET email = COALESCE($2, email), name = COALESCE($3, name), updated_at = now()
		 WHERE id = $1
		RETURNING `+customerColumns, id, p.Email, p.Name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	return c, errors.Wrap(err, "update customer")
}

func (r *Repo) DeleteCustomer(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete customer")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound()
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const cartColumns = `id, customer_id, created_at, updated_at`

func scanCart(row pgx.Row) (*Cart, error) {
	var c Cart
	if err := row.Scan(&c.ID, &c.CustomerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Items = []LineItem{}
	return &c, nil
}

// InsertCart relies on the unique customer_id: a second create for the same
// customer hits ON CONFLICT and reads back the existing cart.
func (r *Repo) InsertCart(ctx context.Context, c *Cart) (*Cart, bool, error) {
	got, err := scanCart(r.DB.QueryRow(ctx, `
		INSERT INTO carts(`+cartColumns+`) VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id) DO NOTHING
		RETURNING `+cartColumns, c.ID, c.CustomerID, c.CreatedAt, c.UpdatedAt))
	if err == nil {
		return got, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, errors.Wrap(err, "insert cart")
	}
	got, err = scanCart(r.DB.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE customer_id = $1`, c.CustomerID))
	if err != nil {
		return nil, false, errors.Wrap(err, "get existing cart")
	}
	if err := loadCartItems(ctx, r.DB, []*Cart{got}); err != nil {
		return nil, false, err
	}
	return got, true, nil
}

func (r *Repo) GetCart(ctx context.Context, id string) (*Cart, error) {
	c, err := scanCart(r.DB.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if err := loadCartItems(ctx, r.DB, []*Cart{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repo) ListCarts(ctx context.Context, q CartQuery) ([]Cart, int, error) {
	cond, args := "TRUE", []any{}
	if q.CustomerID != "" {
		args = append(args, q.CustomerID)
		cond = "customer_id = $1"
	}
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM carts WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count carts")
	}
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`SELECT %s FROM carts WHERE %s ORDER BY updated_at DESC, id LIMIT $%d OFFSET $%d`,
		cartColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list carts")
	}
	var page []*Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			rows.Close()
			return nil, 0, errors.Wrap(err, "scan cart")
		}
		page = append(page, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterate carts")
	}
	if err := loadCartItems(ctx, r.DB, page); err != nil {
		return nil, 0, err
	}
	out := make([]Cart, 0, len(page))
	for _, c := range page {
		out = append(out, *c)
	}
	return out, total, nil
}

// SetCartLine locks the cart row so concurrent edits of one cart apply in
// turn. A replaced line keeps its position.
func (r *Repo) SetCartLine(ctx context.Context, id, productID string, line *LineItem) (*Cart, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin cart update")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCart(tx.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock cart")
	}

	var ct pgconn.CommandTag
	if line == nil {
		ct, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, id, productID)
	} else {
		ct, err = tx.Exec(ctx, `
			INSERT INTO cart_items(cart_id, product_id, position, name_snapshot, price_snapshot, qty)
			VALUES ($1, $2, (SELECT COALESCE(MAX(position) + 1, 0) FROM cart_items WHERE cart_id = $1), $3, $4, $5)
			ON CONFLICT (cart_id, product_id) DO UPDATE
			   SET name_snapshot = EXCLUDED.name_snapshot,
			       price_snapshot = EXCLUDED.price_snapshot,
			       qty = EXCLUDED.qty`,
			id, productID, line.NameSnapshot, line.PriceSnapshot, line.Qty)
	}
	if err != nil {
		return nil, errors.Wrap(err, "write cart line")
	}
	if ct.RowsAffected() > 0 {
		if err := tx.QueryRow(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1 RETURNING updated_at`, id).Scan(&c.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "touch cart")
		}
	}
	if err := loadCartItems(ctx, tx, []*Cart{c}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit cart update")
	}
	return c, nil
}

func (r *Repo) DeleteCart(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete cart")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound()
	}
	return nil
}

func loadCartItems(ctx context.Context, q querier, list []*Cart) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*Cart, len(list))
	keys := make([]string, 0, len(list))
	for _, c := range list {
		byID[c.ID] = c
		keys = append(keys, c.ID)
	}
	rows, err := q.Query(ctx, `
		SELECT cart_id, product_id, name_snapshot, price_snapshot, qty
		  FROM cart_items WHERE cart_id = ANY($1::bpchar[])
		 ORDER BY cart_id, position`, keys)
	if err != nil {
		return errors.Wrap(err, "query cart items")
	}
	defer rows.Close()
	for rows.Next() {
		var cartID string
		var it LineItem
		if err := rows.Scan(&cartID, &it.ProductID, &it.NameSnapshot, &it.PriceSnapshot, &it.Qty); err != nil {
			return errors.Wrap(err, "scan cart item")
		}
		if c, ok := byID[cartID]; ok {
			c.Items = append(c.Items, it)
		}
	}
	return errors.Wrap(rows.Err(), "iterate cart items")
}
