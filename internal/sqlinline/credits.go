package sqlinline

// QGrantCredits appends the transaction and upserts the account in one
// statement. A repeated (user_id, reference_id) aborts both writes.
const QGrantCredits = `--sql af3f915f-0a34-4efb-b849-4613ca9afa79
with tx as (
    insert into credit_transactions (id, user_id, amount, type, reference_id, description, created_at)
    values (gen_random_uuid(), $1::text, $2::bigint, $3::text, nullif($4::text, ''), $5::text, now())
    returning id, user_id, amount, type, coalesce(reference_id, '') as reference_id, description, created_at
),
account as (
    insert into credit_accounts (user_id, balance, total_earned, total_spent, created_at, updated_at)
    select user_id, amount, amount, 0, now(), now() from tx
    on conflict (user_id) do update set
        balance = credit_accounts.balance + excluded.balance,
        total_earned = credit_accounts.total_earned + excluded.total_earned,
        updated_at = now()
    returning balance
)
select tx.id::text, tx.user_id, tx.amount, tx.type, tx.reference_id, tx.description, tx.created_at, account.balance
from tx, account;
`

// QDeductCredits debits only when the balance covers the amount. No row is
// returned when it does not.
const QDeductCredits = `--sql cfffec0b-82f3-45a8-9aff-330083f44e5d
with debited as (
    update credit_accounts
    set balance = balance - $2::bigint,
        total_spent = total_spent + $2::bigint,
        updated_at = now()
    where user_id = $1::text
      and balance >= $2::bigint
    returning user_id, balance
),
tx as (
    insert into credit_transactions (id, user_id, amount, type, reference_id, description, created_at)
    select gen_random_uuid(), user_id, -$2::bigint, 'generation_spent', nullif($3::text, ''), $4::text, now()
    from debited
    returning id, user_id, amount, type, coalesce(reference_id, '') as reference_id, description, created_at
)
select tx.id::text, tx.user_id, tx.amount, tx.type, tx.reference_id, tx.description, tx.created_at, debited.balance
from tx, debited;
`

const QSelectCreditAccount = `--sql d45cf858-eed5-4edc-80d8-6cbc90e43020
select user_id, balance, total_earned, total_spent, created_at, updated_at
from credit_accounts
where user_id = $1::text
limit 1;
`

const QListCreditTransactions = `--sql 0e87da98-556e-40b9-b649-872e24bb5d14
select id::text, user_id, amount, type, coalesce(reference_id, ''), description, created_at
from credit_transactions
where user_id = $1::text
order by created_at desc, id desc
limit $2::int;
`

const QCreditReferenceExists = `--sql 213ca82d-8777-4b54-b289-49807dcf01c7
select exists (
    select 1
    from credit_transactions
    where user_id = $1::text
      and reference_id = $2::text
);
`

