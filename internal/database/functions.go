package database

import (
	"fmt"

	"gorm.io/gorm"
)

// addCreditsFromPurchaseSQL is the atomic purchase-crediting primitive.
// The INSERT ... ON CONFLICT DO NOTHING on the unique transaction id index
// is the serialization point: a concurrent delivery of the same transaction
// blocks until the first commits, then takes the duplicate branch and reads
// the committed balance. Credits are never computed in application code.
// A missing user raises, aborting the transaction so no ledger row is
// kept; the webhook answers 500 and the provider redelivers once the
// account exists.
const addCreditsFromPurchaseSQL = `
CREATE OR REPLACE FUNCTION add_credits_from_purchase(
	p_user_id uuid,
	p_credits_to_add integer,
	p_revenuecat_transaction_id text,
	p_notes text
) RETURNS jsonb AS $$
DECLARE
	v_credits integer;
BEGIN
	PERFORM 1 FROM users WHERE id = p_user_id;
	IF NOT FOUND THEN
		RAISE EXCEPTION 'no user with id %', p_user_id;
	END IF;

	INSERT INTO credit_transactions
		(user_id, amount, type, revenue_cat_transaction_id, notes, created_at)
	VALUES
		(p_user_id, p_credits_to_add, 'purchase', p_revenuecat_transaction_id, p_notes, now())
	ON CONFLICT (revenue_cat_transaction_id) DO NOTHING;

	IF NOT FOUND THEN
		SELECT credits INTO v_credits FROM users WHERE id = p_user_id;
		RETURN jsonb_build_object(
			'duplicate', true,
			'credits_added', 0,
			'credits', COALESCE(v_credits, 0)
		);
	END IF;

	UPDATE users
	SET credits = credits + p_credits_to_add, updated_at = now()
	WHERE id = p_user_id
	RETURNING credits INTO v_credits;

	RETURN jsonb_build_object(
		'duplicate', false,
		'credits_added', p_credits_to_add,
		'credits', COALESCE(v_credits, 0)
	);
END;
$$ LANGUAGE plpgsql;
`

// deductCreditForSearchSQL atomically checks the balance, deducts the
// search cost, records the search-history row and the ledger entry.
// The guarded UPDATE doubles as the balance check.
const deductCreditForSearchSQL = `
CREATE OR REPLACE FUNCTION deduct_credit_for_search(
	p_user_id uuid,
	p_search_type text,
	p_query text,
	p_cost integer
) RETURNS jsonb AS $$
DECLARE
	v_credits integer;
	v_search_id uuid;
BEGIN
	UPDATE users
	SET credits = credits - p_cost, updated_at = now()
	WHERE id = p_user_id AND credits >= p_cost
	RETURNING credits INTO v_credits;

	IF NOT FOUND THEN
		SELECT credits INTO v_credits FROM users WHERE id = p_user_id;
		RETURN jsonb_build_object(
			'success', false,
			'error', 'insufficient_credits',
			'credits', COALESCE(v_credits, 0)
		);
	END IF;

	INSERT INTO searches (user_id, search_type, query, cost, results_count, created_at)
	VALUES (p_user_id, p_search_type, p_query, p_cost, 0, now())
	RETURNING id INTO v_search_id;

	INSERT INTO credit_transactions (user_id, amount, type, notes, created_at)
	VALUES (p_user_id, -p_cost, 'search', p_search_type || ' search', now());

	RETURN jsonb_build_object(
		'success', true,
		'search_id', v_search_id,
		'credits', v_credits
	);
END;
$$ LANGUAGE plpgsql;
`

// InstallCreditFunctions creates or replaces the stored credit functions.
func InstallCreditFunctions(db *gorm.DB) error {
	for _, stmt := range []string{addCreditsFromPurchaseSQL, deductCreditForSearchSQL} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install credit function: %w", err)
		}
	}
	return nil
}
